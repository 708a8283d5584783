package calls

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrCallNotFound is returned when a call record does not exist.
var ErrCallNotFound = errors.New("calls: call not found")

// Status is the lifecycle state of a call.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus accepts the provider's status vocabulary.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")); st {
	case StatusQueued, StatusRinging, StatusInProgress, StatusCompleted, StatusFailed:
		return st, true
	case "in progress", "inprogress":
		return StatusInProgress, true
	case "ended", "done":
		return StatusCompleted, true
	default:
		return "", false
	}
}

// Record is one call attempt.
type Record struct {
	ID              uuid.UUID `json:"id"`
	ConversationID  string    `json:"conversationId,omitempty"`
	ProviderCallID  string    `json:"providerCallId,omitempty"`
	Status          Status    `json:"status"`
	TargetName      string    `json:"targetName"`
	TargetPhone     string    `json:"targetPhone"`
	Notes           string    `json:"notes,omitempty"`
	Script          string    `json:"script,omitempty"`
	PartySize       int       `json:"partySize,omitempty"`
	ReservationDate string    `json:"reservationDate,omitempty"`
	WindowStart     string    `json:"windowStart,omitempty"`
	WindowEnd       string    `json:"windowEnd,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Store persists call records.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, providerCallID, errMsg string) error
}

const (
	DefaultListLimit = 20
	maxListLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// MemoryStore keeps records in process. It backs the CLI and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[uuid.UUID]Record{}, now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := s.now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrCallNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status, providerCallID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrCallNotFound
	}
	rec.Status = status
	if providerCallID != "" {
		rec.ProviderCallID = providerCallID
	}
	if errMsg != "" {
		rec.Error = errMsg
	}
	rec.UpdatedAt = s.now().UTC()
	s.records[id] = rec
	return nil
}
