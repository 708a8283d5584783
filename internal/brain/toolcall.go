package brain

import (
	"strings"
)

// Tool names the orchestrator handles.
const (
	ToolUpsertSlots  = "upsert_request_slots"
	ToolAskUser      = "ask_user"
	ToolGuideUser    = "guide_user"
	ToolConfirm      = "confirm"
	ToolStartRequest = "start_request"
)

var toolAliases = map[string]string{
	"upsert_request_slots": ToolUpsertSlots,
	"upsert_slots":         ToolUpsertSlots,
	"set_slots":            ToolUpsertSlots,
	"slot_set":             ToolUpsertSlots,
	"update_slots":         ToolUpsertSlots,
	"ask_user":             ToolAskUser,
	"ask":                  ToolAskUser,
	"guide_user":           ToolGuideUser,
	"guide":                ToolGuideUser,
	"confirm":              ToolConfirm,
	"confirm_request":      ToolConfirm,
	"start_request":        ToolStartRequest,
	"start_call":           ToolStartRequest,
	"place_call":           ToolStartRequest,
	"call_now":             ToolStartRequest,
}

// CanonicalToolName folds casing, dashes and known aliases. Unrecognized
// names are returned folded.
func CanonicalToolName(name string) string {
	folded := strings.ToLower(strings.TrimSpace(name))
	folded = strings.ReplaceAll(folded, "-", "_")
	folded = strings.ReplaceAll(folded, " ", "_")
	if canonical, ok := toolAliases[folded]; ok {
		return canonical
	}
	return folded
}

// ToolCall is one decoded effect. The concrete type is one of UpsertSlots,
// AskUser, GuideUser, Confirm, StartRequest or Unknown.
type ToolCall interface {
	CallID() string
	ToolName() string
	Arguments() map[string]any
	toolCall()
}

type call struct {
	ID   string
	Name string
	Args map[string]any
}

func (c call) CallID() string            { return c.ID }
func (c call) ToolName() string          { return c.Name }
func (c call) Arguments() map[string]any { return c.Args }
func (call) toolCall()                   {}

// UpsertSlots merges its arguments into the slot state.
type UpsertSlots struct{ call }

// AskUser asks the user a question and halts the tool loop.
type AskUser struct {
	call
	Question string
}

// GuideUser shows an ordered list of steps.
type GuideUser struct {
	call
	Title string
	Steps []string
}

// Confirm shows a summary that may carry slot values in prose.
type Confirm struct {
	call
	Summary string
}

// StartRequest asks for the outbound call to be placed.
type StartRequest struct{ call }

// Unknown is any tool name the orchestrator does not handle.
type Unknown struct{ call }

// DecodeToolCall builds the typed variant for name.
func DecodeToolCall(id, name string, args map[string]any) ToolCall {
	if args == nil {
		args = map[string]any{}
	}
	canonical := CanonicalToolName(name)
	base := call{ID: id, Name: canonical, Args: args}
	switch canonical {
	case ToolUpsertSlots:
		return UpsertSlots{base}
	case ToolAskUser:
		return AskUser{call: base, Question: firstText(args, "question", "prompt", "text", "message")}
	case ToolGuideUser:
		return GuideUser{call: base, Title: firstText(args, "title", "heading"), Steps: steps(args)}
	case ToolConfirm:
		return Confirm{call: base, Summary: firstText(args, "summary", "text", "message", "details_text")}
	case ToolStartRequest:
		return StartRequest{base}
	default:
		base.Name = strings.TrimSpace(name)
		return Unknown{base}
	}
}

func firstText(args map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := args[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func steps(args map[string]any) []string {
	raw, ok := args["steps"].([]any)
	if !ok {
		raw, ok = args["items"].([]any)
	}
	if !ok {
		if s, isStr := args["steps"].(string); isStr && strings.TrimSpace(s) != "" {
			var out []string
			for _, line := range strings.Split(s, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					out = append(out, line)
				}
			}
			return out
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		case map[string]any:
			if text := firstText(v, "text", "title", "step", "description"); text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}
