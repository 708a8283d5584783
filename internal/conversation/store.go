package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// SessionStore persists sessions between turns.
type SessionStore interface {
	Save(ctx context.Context, sess *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore keeps encoded sessions in process.
type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: map[string][]byte{}}
}

// Save stores an encoded copy so later mutations of sess are not shared.
func (s *MemorySessionStore) Save(_ context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = data
	return nil
}

func (s *MemorySessionStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	data, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	return &sess, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}
