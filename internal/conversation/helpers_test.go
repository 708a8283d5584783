package conversation

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/concierge-dialer/internal/brain"
	"github.com/wolfman30/concierge-dialer/internal/calls"
	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/places"
	"github.com/wolfman30/concierge-dialer/internal/slots"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// Wednesday 2024-11-06, 10:00 in New York.
var testNow = time.Date(2024, 11, 6, 15, 0, 0, 0, time.UTC)

type step struct {
	reply *brain.Reply
	err   error
	panic string
}

// scriptedBrain replays steps in order and answers with plain text once
// they run out.
type scriptedBrain struct {
	mu       sync.Mutex
	steps    []step
	requests []brain.Request
	gate     chan struct{}
}

func (b *scriptedBrain) Send(_ context.Context, req brain.Request) (*brain.Reply, error) {
	if b.gate != nil {
		<-b.gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	req.Messages = append([]brain.Message(nil), req.Messages...)
	b.requests = append(b.requests, req)
	if len(b.steps) == 0 {
		return textReply("Okay."), nil
	}
	s := b.steps[0]
	b.steps = b.steps[1:]
	if s.panic != "" {
		panic(s.panic)
	}
	return s.reply, s.err
}

func (b *scriptedBrain) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func textReply(content string) *brain.Reply {
	return &brain.Reply{
		Content:   content,
		Assistant: brain.Message{Role: brain.RoleAssistant, Content: content},
	}
}

func toolReply(content string, toolCalls ...brain.ToolCall) *brain.Reply {
	msg := brain.Message{Role: brain.RoleAssistant, Content: content}
	for _, tc := range toolCalls {
		msg.ToolCalls = append(msg.ToolCalls, brain.WireToolCall{
			ID:       tc.CallID(),
			Type:     "function",
			Function: brain.WireFunction{Name: tc.ToolName(), Arguments: tc.Arguments()},
		})
	}
	return &brain.Reply{Content: content, ToolCalls: toolCalls, Assistant: msg}
}

func tool(id, name string, args map[string]any) brain.ToolCall {
	return brain.DecodeToolCall(id, name, args)
}

type countingPlacer struct {
	mu       sync.Mutex
	requests []calls.Request
	err      error
}

func (p *countingPlacer) Place(_ context.Context, req calls.Request) (calls.PlaceResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return calls.PlaceResult{CallID: "call-1"}, p.err
}

type harness struct {
	brain  *scriptedBrain
	placer *countingPlacer
	store  *calls.MemoryStore
	orch   *Orchestrator
}

func quietLogger() *logging.Logger { return logging.NewWithWriter("error", io.Discard) }

func newHarness(t *testing.T, steps ...step) *harness {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	dates := naturaldate.NewParserInLocation(loc).WithClock(func() time.Time { return testNow })

	dir, err := places.DefaultDirectory()
	require.NoError(t, err)

	h := &harness{
		brain:  &scriptedBrain{steps: steps},
		placer: &countingPlacer{},
		store:  calls.NewMemoryStore(),
	}
	dispatcher := calls.NewDispatcher(h.placer,
		calls.WithStore(h.store),
		calls.WithDates(dates),
		calls.WithLogger(quietLogger()))
	h.orch = NewOrchestrator(h.brain, Config{
		Normalizer:    slots.NewNormalizer(dates),
		Dispatcher:    dispatcher,
		Resolver:      places.NewResolver(dir, nil, quietLogger()),
		Logger:        quietLogger(),
		MaxToolRounds: 4,
		Now:           func() time.Time { return testNow },
	})
	return h
}

func decodeResult(t *testing.T, msg brain.Message) map[string]any {
	t.Helper()
	require.Equal(t, brain.RoleTool, msg.Role)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.Content), &out))
	return out
}

func lastDisplay(sess *Session) string {
	if len(sess.Display) == 0 {
		return ""
	}
	return sess.Display[len(sess.Display)-1].Content
}
