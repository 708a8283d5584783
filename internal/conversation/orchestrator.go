package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/concierge-dialer/internal/brain"
	"github.com/wolfman30/concierge-dialer/internal/calls"
	"github.com/wolfman30/concierge-dialer/internal/intent"
	"github.com/wolfman30/concierge-dialer/internal/observability/metrics"
	"github.com/wolfman30/concierge-dialer/internal/phone"
	"github.com/wolfman30/concierge-dialer/internal/places"
	"github.com/wolfman30/concierge-dialer/internal/slots"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// Brain proposes the next assistant reply for a transcript.
type Brain interface {
	Send(ctx context.Context, req brain.Request) (*brain.Reply, error)
}

// CallDispatcher places the outbound call for resolved details.
type CallDispatcher interface {
	Dispatch(ctx context.Context, conversationID string, details slots.Details) calls.Result
}

// DestinationResolver finds the number to dial.
type DestinationResolver interface {
	Resolve(ctx context.Context, q places.Query) (places.Resolution, bool)
}

const defaultMaxToolRounds = 6

// Config wires the orchestrator's collaborators.
type Config struct {
	Normalizer    *slots.Normalizer
	Dispatcher    CallDispatcher
	Resolver      DestinationResolver
	Metrics       *metrics.TurnMetrics
	Logger        *logging.Logger
	MaxToolRounds int
	TurnTimeout   time.Duration
	Now           func() time.Time
}

// Orchestrator runs one turn at a time against a session it is handed. It
// holds no per-conversation state.
type Orchestrator struct {
	brain       Brain
	normalizer  *slots.Normalizer
	dispatcher  CallDispatcher
	resolver    DestinationResolver
	metrics     *metrics.TurnMetrics
	logger      *logging.Logger
	maxRounds   int
	turnTimeout time.Duration
	now         func() time.Time
}

// NewOrchestrator validates cfg and builds the turn engine.
func NewOrchestrator(b Brain, cfg Config) *Orchestrator {
	if b == nil {
		panic("conversation: brain cannot be nil")
	}
	if cfg.Normalizer == nil {
		panic("conversation: normalizer cannot be nil")
	}
	if cfg.Dispatcher == nil {
		panic("conversation: dispatcher cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		brain:       b,
		normalizer:  cfg.Normalizer,
		dispatcher:  cfg.Dispatcher,
		resolver:    cfg.Resolver,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		maxRounds:   cfg.MaxToolRounds,
		turnTimeout: cfg.TurnTimeout,
		now:         cfg.Now,
	}
}

// HandleTurn runs text through the state machine and leaves sess in a
// terminal state: AwaitingUser, CallDispatched or Error. A brain transport
// failure restores the slots and protocol transcript to their pre-turn
// values so the same text can be sent again. A failed dispatch also ends in
// Error but keeps what the turn gathered.
func (o *Orchestrator) HandleTurn(ctx context.Context, sess *Session, text string) State {
	if o.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.turnTimeout)
		defer cancel()
	}
	logger := o.logger.With("conversation_id", sess.ID)
	before := sess.Clone()

	text = strings.TrimSpace(text)
	o.appendDisplay(sess, brain.RoleUser, text)
	sess.Protocol = append(sess.Protocol, brain.Message{Role: brain.RoleUser, Content: text})
	o.capture(&sess.Slots, text)

	final, rollback := o.loop(ctx, sess, logger)
	if rollback {
		sess.Slots = before.Slots
		sess.Protocol = before.Protocol
		o.appendDisplay(sess, brain.RoleAssistant, transportErrorPrompt)
	}
	sess.State = final
	sess.UpdatedAt = o.now()
	o.metrics.ObserveTurn(string(final))
	logger.Info("turn complete", "state", string(final), "mode", string(sess.Slots.Mode))
	return final
}

func (o *Orchestrator) loop(ctx context.Context, sess *Session, logger *logging.Logger) (State, bool) {
	for round := 1; round <= o.maxRounds; round++ {
		sess.State = StateAwaitingBrain
		reply, err := o.ask(ctx, sess)
		if err != nil {
			if errors.Is(err, brain.ErrMalformedResponse) {
				logger.Warn("discarding malformed brain reply", "round", round, "error", err)
				return StateAwaitingUser, false
			}
			logger.Error("brain request failed", "round", round, "error", err)
			return StateError, true
		}

		sess.Protocol = append(sess.Protocol, reply.Assistant)
		if len(reply.Slots) > 0 {
			sess.Slots = o.normalizer.Apply(sess.Slots, reply.Slots)
		}

		if !reply.HasToolCalls() {
			if content := guardDiscovery(reply.Content, sess.Slots); content != "" {
				o.appendDisplay(sess, brain.RoleAssistant, content)
			}
			return StateAwaitingUser, false
		}

		if reply.Content != "" {
			o.appendDisplay(sess, brain.RoleAssistant, reply.Content)
		}
		sess.State = StateProcessingToolCalls
		if halt, next := o.runToolCalls(ctx, sess, reply.ToolCalls, logger); halt {
			return next, false
		}
	}

	logger.Warn("tool round limit reached", "rounds", o.maxRounds)
	o.appendDisplay(sess, brain.RoleAssistant, roundLimitPrompt)
	return StateAwaitingUser, false
}

func (o *Orchestrator) ask(ctx context.Context, sess *Session) (*brain.Reply, error) {
	start := time.Now()
	reply, err := o.brain.Send(ctx, brain.Request{
		ThreadID: sess.ID,
		Messages: sess.Protocol,
		Slots:    sess.Slots,
	})
	status := "ok"
	switch {
	case errors.Is(err, brain.ErrMalformedResponse):
		status = "malformed"
	case err != nil:
		status = "transport"
	}
	o.metrics.ObserveBrain(status, time.Since(start))
	return reply, err
}

// runToolCalls handles calls in issue order and appends one result per
// call. Calls after a halting call are answered as skipped.
func (o *Orchestrator) runToolCalls(ctx context.Context, sess *Session, toolCalls []brain.ToolCall, logger *logging.Logger) (bool, State) {
	halted := false
	next := StateAwaitingUser
	for _, tc := range toolCalls {
		if halted {
			sess.Protocol = append(sess.Protocol, brain.ToolResult(tc, map[string]any{"skipped": true, "reason": "halted"}))
			continue
		}
		o.metrics.ObserveToolCall(tc.ToolName())
		out := o.handle(ctx, sess, tc)
		logger.Debug("tool call handled", "tool", tc.ToolName(), "call_id", tc.CallID(), "halt", out.halt)
		sess.Protocol = append(sess.Protocol, brain.ToolResult(tc, out.result))
		if out.display != "" {
			o.appendDisplay(sess, brain.RoleAssistant, out.display)
		}
		if out.halt {
			halted = true
			next = out.next
		}
	}
	return halted, next
}

// capture applies what can be read straight from the user's text before
// the brain sees it: mode, phone numbers and a date.
func (o *Orchestrator) capture(s *slots.State, text string) {
	res := intent.Classify(text, s.Mode)
	s.Mode = res.Mode
	if res.DestinationPhoneIntent {
		s.UI.ExpectingDestPhone = true
	}

	// With several numbers, phrasing only describes the number that follows
	// it, so each one is judged by the text since the previous number.
	matches := phone.ExtractAll(text)
	prev := 0
	for _, m := range matches {
		clause := text
		if len(matches) > 1 {
			clause = text[prev:m.Start]
		}
		prev = m.End
		switch phone.Assign(clause, s.UI.ExpectingDestPhone, s.Details.UserPhone != "") {
		case phone.TargetDestination:
			s.Details.DestinationPhone = m.Number
			s.UI.ExpectingDestPhone = false
		default:
			s.Details.UserPhone = m.Number
		}
	}

	if s.Details.Date == "" {
		s.Details.Date = o.normalizer.Dates().CaptureDate(text)
	}
}

func (o *Orchestrator) appendDisplay(sess *Session, role brain.Role, content string) {
	if content == "" {
		return
	}
	sess.Display = append(sess.Display, DisplayMessage{Role: role, Content: content, At: o.now()})
}
