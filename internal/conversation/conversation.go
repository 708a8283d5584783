package conversation

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// Conversation serializes turns for one session. At most one turn is in
// flight; sends that arrive meanwhile are rejected with ErrBusy.
type Conversation struct {
	orch   *Orchestrator
	store  SessionStore
	logger *logging.Logger

	mu      sync.RWMutex
	session Session
	busy    atomic.Bool
	wg      sync.WaitGroup

	listenersMu sync.Mutex
	listeners   map[int]func(Snapshot)
	nextID      int
}

func newConversation(sess *Session, orch *Orchestrator, store SessionStore, logger *logging.Logger) *Conversation {
	return &Conversation{
		orch:      orch,
		store:     store,
		logger:    logger.With("conversation_id", sess.ID),
		session:   sess.Clone(),
		listeners: map[int]func(Snapshot){},
	}
}

// ID returns the session id.
func (c *Conversation) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.ID
}

// Busy reports whether a turn is in flight.
func (c *Conversation) Busy() bool {
	return c.busy.Load()
}

// Snapshot returns a copy of the committed slot state and display
// transcript.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.snapshot(c.busy.Load())
}

// HandleSend starts a turn in the background and returns once it has been
// accepted. Listeners registered with OnTurnComplete see the result.
func (c *Conversation) HandleSend(text string) error {
	text, err := c.begin(text)
	if err != nil {
		return err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(context.Background(), text)
	}()
	return nil
}

// Send runs a turn and waits for it.
func (c *Conversation) Send(ctx context.Context, text string) (Snapshot, error) {
	text, err := c.begin(text)
	if err != nil {
		return Snapshot{}, err
	}
	return c.run(ctx, text), nil
}

// Wait blocks until background turns started by HandleSend finish.
func (c *Conversation) Wait() {
	c.wg.Wait()
}

// OnTurnComplete registers fn for every finished turn and returns a func
// that removes it.
func (c *Conversation) OnTurnComplete(fn func(Snapshot)) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Conversation) begin(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if !c.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	return text, nil
}

func (c *Conversation) run(ctx context.Context, text string) Snapshot {
	defer c.busy.Store(false)

	c.mu.RLock()
	work := c.session.Clone()
	c.mu.RUnlock()

	if c.turn(ctx, &work, text) {
		c.mu.Lock()
		c.session = work
		c.mu.Unlock()

		if c.store != nil {
			if err := c.store.Save(context.WithoutCancel(ctx), &work); err != nil {
				c.logger.Error("failed to persist session", "error", err)
			}
		}
	}

	c.busy.Store(false)
	snap := c.Snapshot()
	c.notify(snap)
	return snap
}

// turn runs one orchestrator turn on work. A panicking turn is logged and
// reported as false so the committed session stays as it was.
func (c *Conversation) turn(ctx context.Context, work *Session, text string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("turn panicked", "panic", r)
			ok = false
		}
	}()
	c.orch.HandleTurn(ctx, work, text)
	return true
}

func (c *Conversation) notify(snap Snapshot) {
	c.listenersMu.Lock()
	fns := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
