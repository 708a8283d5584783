package brain

import (
	"encoding/json"
)

// ToolResult encodes payload as the tool message answering tc.
func ToolResult(tc ToolCall, payload any) Message {
	content, err := json.Marshal(payload)
	if err != nil {
		content, _ = json.Marshal(map[string]string{"error": "unencodable_result"})
	}
	return Message{
		Role:       RoleTool,
		Content:    string(content),
		ToolCallID: tc.CallID(),
		Name:       tc.ToolName(),
	}
}
