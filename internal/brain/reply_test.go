package brain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen_%d", n)
	}
}

func decodeResponse(t *testing.T, body string) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp
}

func TestInterpretOpenAIToolCalls(t *testing.T) {
	resp := decodeResponse(t, `{
		"ok": true,
		"message": {
			"role": "assistant",
			"content": "Got it.",
			"tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "upsert_request_slots", "arguments": "{\"partySize\": 2}"}},
				{"id": "call_2", "type": "function", "function": {"name": "ask_user", "arguments": {"question": "What time?"}}}
			]
		}
	}`)

	reply, err := Interpret(resp, sequentialIDs())
	require.NoError(t, err)
	assert.Equal(t, "Got it.", reply.Content)
	require.Len(t, reply.ToolCalls, 2)

	upsert, ok := reply.ToolCalls[0].(UpsertSlots)
	require.True(t, ok)
	assert.Equal(t, "call_1", upsert.CallID())
	assert.Equal(t, float64(2), upsert.Arguments()["partySize"])

	ask, ok := reply.ToolCalls[1].(AskUser)
	require.True(t, ok)
	assert.Equal(t, "What time?", ask.Question)

	require.Len(t, reply.Assistant.ToolCalls, 2)
	assert.Equal(t, RoleAssistant, reply.Assistant.Role)
	assert.Equal(t, "call_2", reply.Assistant.ToolCalls[1].ID)
}

func TestInterpretAnnotationsBecomeOneUpsert(t *testing.T) {
	resp := decodeResponse(t, `{
		"message": {"role": "assistant", "content": "Noted", "annotations": [{"type": "slot_set", "key": "restaurant", "value": "Via Carota"}]},
		"annotations": [
			{"type": "slot_set", "key": "partySize", "value": 2},
			{"type": "note", "key": "ignored"}
		]
	}`)

	reply, err := Interpret(resp, sequentialIDs())
	require.NoError(t, err)
	require.Len(t, reply.ToolCalls, 1)

	upsert, ok := reply.ToolCalls[0].(UpsertSlots)
	require.True(t, ok)
	assert.Equal(t, "gen_1", upsert.CallID())
	assert.Equal(t, map[string]any{"restaurant": "Via Carota", "partySize": float64(2)}, upsert.Arguments())

	require.Len(t, reply.Assistant.ToolCalls, 1)
	assert.Equal(t, ToolUpsertSlots, reply.Assistant.ToolCalls[0].Function.Name)
}

func TestInterpretToolCallAnnotationAndToolRequests(t *testing.T) {
	resp := decodeResponse(t, `{
		"message": {"role": "assistant", "content": ""},
		"annotations": [{"type": "tool_call", "name": "guide_user", "args": {"steps": ["Pick a place", {"text": "Confirm"}]}}],
		"toolRequests": [{"name": "Start-Request", "args": {"restaurantName": "Lilia"}}, {"name": "order_pizza", "arguments": "{}"}]
	}`)

	reply, err := Interpret(resp, sequentialIDs())
	require.NoError(t, err)
	require.Len(t, reply.ToolCalls, 3)

	guide, ok := reply.ToolCalls[0].(GuideUser)
	require.True(t, ok)
	assert.Equal(t, []string{"Pick a place", "Confirm"}, guide.Steps)

	start, ok := reply.ToolCalls[1].(StartRequest)
	require.True(t, ok)
	assert.Equal(t, ToolStartRequest, start.ToolName())
	assert.Equal(t, "gen_2", start.CallID())

	unknown, ok := reply.ToolCalls[2].(Unknown)
	require.True(t, ok)
	assert.Equal(t, "order_pizza", unknown.ToolName())
}

func TestInterpretDropsEffectRepeatedAcrossEncodings(t *testing.T) {
	resp := decodeResponse(t, `{
		"message": {"role": "assistant", "tool_calls": [{"id": "c1", "function": {"name": "start_request", "arguments": "{\"restaurantName\":\"Lilia\"}"}}]},
		"toolRequests": [{"name": "start_request", "args": {"restaurantName": "Lilia"}}]
	}`)

	reply, err := Interpret(resp, sequentialIDs())
	require.NoError(t, err)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "c1", reply.ToolCalls[0].CallID())
}

func TestInterpretMessagesDelta(t *testing.T) {
	resp := decodeResponse(t, `{"ok": true, "messagesDelta": [{"role": "assistant", "content": "Hi"}, {"role": "tool", "content": "x"}, {"role": "assistant", "content": "There"}]}`)
	reply, err := Interpret(resp, sequentialIDs())
	require.NoError(t, err)
	assert.Equal(t, "Hi\n\nThere", reply.Content)
	assert.False(t, reply.HasToolCalls())
}

func TestInterpretErrors(t *testing.T) {
	t.Run("ok false is transport", func(t *testing.T) {
		_, err := Interpret(decodeResponse(t, `{"ok": false, "error": "upstream timeout"}`), sequentialIDs())
		assert.ErrorIs(t, err, ErrTransport)
		assert.Contains(t, err.Error(), "upstream timeout")
	})

	t.Run("nameless tool call is malformed", func(t *testing.T) {
		_, err := Interpret(decodeResponse(t, `{"message": {"role": "assistant", "tool_calls": [{"id": "c1", "function": {"name": ""}}]}}`), sequentialIDs())
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("wrong role is malformed", func(t *testing.T) {
		_, err := Interpret(decodeResponse(t, `{"message": {"role": "user", "content": "hi"}}`), sequentialIDs())
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("nameless tool request is malformed", func(t *testing.T) {
		_, err := Interpret(decodeResponse(t, `{"toolRequests": [{"args": {}}]}`), sequentialIDs())
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestDecodeToolCallVariants(t *testing.T) {
	ask := DecodeToolCall("1", "ASK_USER", map[string]any{"prompt": " Party size? "})
	require.IsType(t, AskUser{}, ask)
	assert.Equal(t, "Party size?", ask.(AskUser).Question)

	confirm := DecodeToolCall("2", "confirm", map[string]any{"summary": "Table for 2"})
	require.IsType(t, Confirm{}, confirm)
	assert.Equal(t, "Table for 2", confirm.(Confirm).Summary)

	guide := DecodeToolCall("3", "guide", map[string]any{"title": "How it works", "steps": "one\n\n two \n"})
	require.IsType(t, GuideUser{}, guide)
	assert.Equal(t, "How it works", guide.(GuideUser).Title)
	assert.Equal(t, []string{"one", "two"}, guide.(GuideUser).Steps)

	upsert := DecodeToolCall("4", "set-slots", nil)
	require.IsType(t, UpsertSlots{}, upsert)
	assert.NotNil(t, upsert.Arguments())

	assert.IsType(t, StartRequest{}, DecodeToolCall("5", "call_now", nil))
	assert.IsType(t, Unknown{}, DecodeToolCall("6", "book_flight", nil))
}

func TestArgumentsCodec(t *testing.T) {
	var fromString, fromObject, fromEmpty Arguments
	require.NoError(t, json.Unmarshal([]byte(`"{\"a\":1}"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`{"a":1}`), &fromObject))
	require.NoError(t, json.Unmarshal([]byte(`""`), &fromEmpty))
	assert.Equal(t, fromObject, fromString)
	assert.Empty(t, fromEmpty)

	var bad Arguments
	assert.Error(t, json.Unmarshal([]byte(`"{not json"`), &bad))

	out, err := json.Marshal(Arguments{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `"{\"a\":1}"`, string(out))
}

func TestToolResult(t *testing.T) {
	msg := ToolResult(DecodeToolCall("c9", "start_request", nil), map[string]any{"error": "missing_required_slots", "missing": []string{"partySize"}})
	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "c9", msg.ToolCallID)
	assert.Equal(t, ToolStartRequest, msg.Name)
	assert.JSONEq(t, `{"error":"missing_required_slots","missing":["partySize"]}`, msg.Content)
}
