package brain

import (
	"fmt"
	"reflect"
	"strings"
)

const annotationSlotSet = "slot_set"
const annotationToolCall = "tool_call"

// Reply is a brain response reduced to the effects the orchestrator acts on.
type Reply struct {
	// Content is the assistant prose, possibly empty.
	Content string
	// ToolCalls holds every effect from every wire encoding, in order:
	// message tool_calls, then annotations, then toolRequests.
	ToolCalls []ToolCall
	// Slots is the canonical slot object the brain echoed back, if any.
	Slots map[string]any
	// Assistant is the message to append to the protocol transcript. Effects
	// that arrived as annotations or toolRequests are re-encoded as
	// tool_calls so each later tool result has a matching id.
	Assistant Message
}

// HasToolCalls reports whether the reply asks for any local work.
func (r *Reply) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Interpret validates resp and folds its encodings into a Reply. newID
// supplies ids for effects that arrived without one.
func Interpret(resp Response, newID func() string) (*Reply, error) {
	if resp.OK != nil && !*resp.OK {
		reason := strings.TrimSpace(resp.Error)
		if reason == "" {
			reason = "brain reported failure"
		}
		return nil, fmt.Errorf("%w: %s", ErrTransport, reason)
	}

	reply := &Reply{Slots: resp.Slots}
	var annotations []Annotation

	if msg := resp.Message; msg != nil {
		if msg.Role != "" && msg.Role != RoleAssistant {
			return nil, fmt.Errorf("%w: unexpected message role %q", ErrMalformedResponse, msg.Role)
		}
		reply.Content = strings.TrimSpace(msg.Content)
		for _, tc := range msg.ToolCalls {
			name := strings.TrimSpace(tc.Function.Name)
			if name == "" {
				return nil, fmt.Errorf("%w: tool call without a function name", ErrMalformedResponse)
			}
			id := tc.ID
			if id == "" {
				id = newID()
			}
			reply.ToolCalls = append(reply.ToolCalls, DecodeToolCall(id, name, tc.Function.Arguments))
		}
		annotations = append(annotations, msg.Annotations...)
	} else {
		var parts []string
		for _, m := range resp.MessagesDelta {
			if m.Role == RoleAssistant || m.Role == "" {
				if c := strings.TrimSpace(m.Content); c != "" {
					parts = append(parts, c)
				}
			}
		}
		reply.Content = strings.Join(parts, "\n\n")
	}
	annotations = append(annotations, resp.Annotations...)

	primary := len(reply.ToolCalls)
	if upsert := slotSetArgs(annotations); len(upsert) > 0 {
		reply.ToolCalls = appendEffect(reply.ToolCalls, primary, DecodeToolCall(newID(), ToolUpsertSlots, upsert))
	}
	for _, a := range annotations {
		if !strings.EqualFold(a.Type, annotationToolCall) {
			continue
		}
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool_call annotation without a name", ErrMalformedResponse)
		}
		id := a.ID
		if id == "" {
			id = newID()
		}
		reply.ToolCalls = appendEffect(reply.ToolCalls, primary, DecodeToolCall(id, name, a.Args))
	}
	for _, tr := range resp.ToolRequests {
		name := strings.TrimSpace(tr.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool request without a name", ErrMalformedResponse)
		}
		args := tr.Args
		if args == nil {
			args = tr.Arguments
		}
		id := tr.ID
		if id == "" {
			id = newID()
		}
		reply.ToolCalls = appendEffect(reply.ToolCalls, primary, DecodeToolCall(id, name, args))
	}

	reply.Assistant = Message{Role: RoleAssistant, Content: reply.Content}
	for _, tc := range reply.ToolCalls {
		reply.Assistant.ToolCalls = append(reply.Assistant.ToolCalls, WireToolCall{
			ID:       tc.CallID(),
			Type:     "function",
			Function: WireFunction{Name: tc.ToolName(), Arguments: Arguments(tc.Arguments())},
		})
	}
	return reply, nil
}

func slotSetArgs(annotations []Annotation) map[string]any {
	var args map[string]any
	for _, a := range annotations {
		if !strings.EqualFold(a.Type, annotationSlotSet) || strings.TrimSpace(a.Key) == "" {
			continue
		}
		if args == nil {
			args = map[string]any{}
		}
		args[strings.TrimSpace(a.Key)] = a.Value
	}
	return args
}

// appendEffect drops a secondary-encoding effect that repeats one already
// carried in the message's own tool_calls.
func appendEffect(calls []ToolCall, primary int, tc ToolCall) []ToolCall {
	for _, existing := range calls[:primary] {
		if existing.ToolName() == tc.ToolName() && reflect.DeepEqual(existing.Arguments(), tc.Arguments()) {
			return calls
		}
	}
	return append(calls, tc)
}
