// Package conversation runs the turn engine that drives a reservation chat
// from free text to a single placed call.
package conversation

import (
	"errors"
	"time"

	"github.com/wolfman30/concierge-dialer/internal/brain"
	"github.com/wolfman30/concierge-dialer/internal/slots"
)

var (
	// ErrBusy is returned when a message arrives while a turn is in flight.
	ErrBusy = errors.New("conversation: turn in progress")
	// ErrEmptyMessage is returned for blank user text.
	ErrEmptyMessage = errors.New("conversation: empty message")
	// ErrSessionNotFound is returned when no session exists for an id.
	ErrSessionNotFound = errors.New("conversation: session not found")
)

// State is the turn engine's position.
type State string

const (
	StateIdle                State = "idle"
	StateAwaitingBrain       State = "awaiting_brain"
	StateProcessingToolCalls State = "processing_tool_calls"
	StateAwaitingUser        State = "awaiting_user"
	StateCallDispatched      State = "call_dispatched"
	StateError               State = "error"
)

// DisplayMessage is one entry of the user-visible transcript.
type DisplayMessage struct {
	Role    brain.Role `json:"role"`
	Content string     `json:"content"`
	At      time.Time  `json:"at"`
}

// Session is everything a conversation owns between turns.
type Session struct {
	ID        string           `json:"id"`
	State     State            `json:"state"`
	Slots     slots.State      `json:"slots"`
	Display   []DisplayMessage `json:"display"`
	Protocol  []brain.Message  `json:"protocol"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// NewSession creates an idle session with empty slots.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateIdle,
		Slots:     slots.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone copies the session. Transcript entries are never mutated in place,
// so copying the slices is enough.
func (s *Session) Clone() Session {
	out := *s
	out.Slots = s.Slots.Clone()
	out.Display = append([]DisplayMessage(nil), s.Display...)
	out.Protocol = append([]brain.Message(nil), s.Protocol...)
	return out
}

// Snapshot is the read-only view exposed to transports.
type Snapshot struct {
	ID        string           `json:"id"`
	State     State            `json:"state"`
	Busy      bool             `json:"busy"`
	Slots     slots.State      `json:"slots"`
	Messages  []DisplayMessage `json:"messages"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func (s *Session) snapshot(busy bool) Snapshot {
	return Snapshot{
		ID:        s.ID,
		State:     s.State,
		Busy:      busy,
		Slots:     s.Slots.Clone(),
		Messages:  append([]DisplayMessage(nil), s.Display...),
		UpdatedAt: s.UpdatedAt,
	}
}
