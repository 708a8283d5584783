// Package brain speaks to the remote language-model service that proposes
// replies and tool invocations for a conversation.
package brain

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/wolfman30/concierge-dialer/internal/slots"
)

var (
	// ErrTransport covers network failures, non-2xx statuses and ok:false
	// replies. The turn may be retried.
	ErrTransport = errors.New("brain: transport error")
	// ErrMalformedResponse is returned for bodies that are not JSON or do not
	// match the reply schema.
	ErrMalformedResponse = errors.New("brain: malformed response")
)

// Role of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one protocol transcript entry in the OpenAI chat shape.
type Message struct {
	Role        Role           `json:"role"`
	Content     string         `json:"content"`
	ToolCallID  string         `json:"tool_call_id,omitempty"`
	Name        string         `json:"name,omitempty"`
	ToolCalls   []WireToolCall `json:"tool_calls,omitempty"`
	// Annotations appear on inbound assistant messages only.
	Annotations []Annotation `json:"annotations,omitempty"`
}

// WireToolCall is the OpenAI function-call encoding.
type WireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function WireFunction `json:"function"`
}

// WireFunction names the function and carries its arguments.
type WireFunction struct {
	Name      string    `json:"name"`
	Arguments Arguments `json:"arguments"`
}

// Arguments decodes from either a JSON-encoded string (OpenAI) or a bare
// object, and always encodes as a string.
type Arguments map[string]any

// UnmarshalJSON implements json.Unmarshaler.
func (a *Arguments) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Arguments{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if len(bytes.TrimSpace([]byte(raw))) == 0 {
			*a = Arguments{}
			return nil
		}
		data = []byte(raw)
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*a = m
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Arguments) MarshalJSON() ([]byte, error) {
	m := map[string]any(a)
	if m == nil {
		m = map[string]any{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(raw))
}

// Annotation is the alternate effect encoding. slot_set carries one key and
// value; tool_call carries a named invocation.
type Annotation struct {
	Type  string         `json:"type"`
	Key   string         `json:"key,omitempty"`
	Value any            `json:"value,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Args  map[string]any `json:"args,omitempty"`
}

// ToolRequest is a named invocation outside the message body.
type ToolRequest struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Args      map[string]any `json:"args,omitempty"`
	Arguments Arguments      `json:"arguments,omitempty"`
}

// Request is the body posted to the brain.
type Request struct {
	ThreadID  string      `json:"threadId"`
	RequestID string      `json:"requestId"`
	Model     string      `json:"model,omitempty"`
	Messages  []Message   `json:"messages"`
	Slots     slots.State `json:"slots"`
}

// Response is the raw reply body.
type Response struct {
	OK            *bool          `json:"ok,omitempty"`
	Message       *Message       `json:"message,omitempty"`
	MessagesDelta []Message      `json:"messagesDelta,omitempty"`
	Annotations   []Annotation   `json:"annotations,omitempty"`
	ToolRequests  []ToolRequest  `json:"toolRequests,omitempty"`
	Slots         map[string]any `json:"slots,omitempty"`
	Error         string         `json:"error,omitempty"`
}
