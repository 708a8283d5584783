package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// Manager owns the live conversations of one process and restores
// persisted sessions on demand.
type Manager struct {
	orch   *Orchestrator
	store  SessionStore
	logger *logging.Logger
	now    func() time.Time

	mu    sync.Mutex
	convs map[string]*Conversation
}

// NewManager creates a Manager. store may be nil for process-local
// sessions.
func NewManager(orch *Orchestrator, store SessionStore, logger *logging.Logger) *Manager {
	if orch == nil {
		panic("conversation: orchestrator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		orch:   orch,
		store:  store,
		logger: logger,
		now:    time.Now,
		convs:  map[string]*Conversation{},
	}
}

// Create starts a new empty conversation.
func (m *Manager) Create(ctx context.Context) (*Conversation, error) {
	sess := NewSession(uuid.NewString(), m.now().UTC())
	if m.store != nil {
		if err := m.store.Save(ctx, sess); err != nil {
			return nil, err
		}
	}
	conv := newConversation(sess, m.orch, m.store, m.logger)

	m.mu.Lock()
	m.convs[sess.ID] = conv
	m.mu.Unlock()
	m.logger.Info("conversation created", "conversation_id", sess.ID)
	return conv, nil
}

// Get returns the live conversation for id, loading it from the store when
// this process has not seen it yet.
func (m *Manager) Get(ctx context.Context, id string) (*Conversation, error) {
	m.mu.Lock()
	conv, ok := m.convs[id]
	m.mu.Unlock()
	if ok {
		return conv, nil
	}
	if m.store == nil {
		return nil, ErrSessionNotFound
	}

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.convs[id]; ok {
		return existing, nil
	}
	conv = newConversation(sess, m.orch, m.store, m.logger)
	m.convs[id] = conv
	return conv, nil
}

// Delete forgets id locally and in the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.convs, id)
	m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}
