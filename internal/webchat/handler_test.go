package webchat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/concierge-dialer/internal/brain"
	"github.com/wolfman30/concierge-dialer/internal/calls"
	"github.com/wolfman30/concierge-dialer/internal/conversation"
	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/slots"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

type echoBrain struct{}

func (echoBrain) Send(_ context.Context, req brain.Request) (*brain.Reply, error) {
	content := "You said: " + req.Messages[len(req.Messages)-1].Content
	return &brain.Reply{Content: content, Assistant: brain.Message{Role: brain.RoleAssistant, Content: content}}, nil
}

type noopPlacer struct{}

func (noopPlacer) Place(context.Context, calls.Request) (calls.PlaceResult, error) {
	return calls.PlaceResult{CallID: "call-1"}, nil
}

func newTestManager() *conversation.Manager {
	logger := logging.NewWithWriter("error", io.Discard)
	orch := conversation.NewOrchestrator(echoBrain{}, conversation.Config{
		Normalizer: slots.NewNormalizer(naturaldate.NewParserInLocation(nil)),
		Dispatcher: calls.NewDispatcher(noopPlacer{}, calls.WithLogger(logger)),
		Logger:     logger,
	})
	return conversation.NewManager(orch, nil, logger)
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws" + query
	ws, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	require.NoError(t, ws.SetDeadline(time.Now().Add(5*time.Second)))
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func receive(t *testing.T, ws *websocket.Conn) OutboundMessage {
	t.Helper()
	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(ws, &msg))
	return msg
}

func TestWebSocket_MessageRoundTrip(t *testing.T) {
	h := NewHandler(newTestManager(), logging.NewWithWriter("error", io.Discard))
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	ws := dial(t, srv, "")

	session := receive(t, ws)
	assert.Equal(t, "session", session.Type)
	require.NotEmpty(t, session.ConversationID)

	initial := receive(t, ws)
	require.Equal(t, "snapshot", initial.Type)
	assert.Empty(t, initial.Snapshot.Messages)

	require.NoError(t, websocket.JSON.Send(ws, InboundMessage{Type: "ping"}))
	assert.Equal(t, "pong", receive(t, ws).Type)

	require.NoError(t, websocket.JSON.Send(ws, InboundMessage{Type: "message", Text: "hello"}))

	// typing and the finished snapshot race; read until the snapshot lands.
	var done *conversation.Snapshot
	for done == nil {
		msg := receive(t, ws)
		if msg.Type == "snapshot" && !msg.Snapshot.Busy {
			done = msg.Snapshot
		}
	}
	require.Len(t, done.Messages, 2)
	assert.Equal(t, "hello", done.Messages[0].Content)
	assert.Equal(t, "You said: hello", done.Messages[1].Content)
	assert.Equal(t, conversation.StateAwaitingUser, done.State)
}

func TestWebSocket_EmptyMessage(t *testing.T) {
	h := NewHandler(newTestManager(), logging.NewWithWriter("error", io.Discard))
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	ws := dial(t, srv, "")
	receive(t, ws)
	receive(t, ws)

	require.NoError(t, websocket.JSON.Send(ws, InboundMessage{Type: "message", Text: "   "}))
	msg := receive(t, ws)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "empty_message", msg.Code)
}

func TestWebSocket_ResumeAndUnknown(t *testing.T) {
	manager := newTestManager()
	conv, err := manager.Create(context.Background())
	require.NoError(t, err)

	h := NewHandler(manager, logging.NewWithWriter("error", io.Discard))
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	ws := dial(t, srv, "?conversation="+conv.ID())
	assert.Equal(t, conv.ID(), receive(t, ws).ConversationID)

	missing := dial(t, srv, "?conversation=nope")
	msg := receive(t, missing)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "conversation_not_found", msg.Code)
}

func TestHandleHistory(t *testing.T) {
	manager := newTestManager()
	conv, err := manager.Create(context.Background())
	require.NoError(t, err)
	_, err = conv.Send(context.Background(), "table for two")
	require.NoError(t, err)

	h := NewHandler(manager, logging.NewWithWriter("error", io.Discard))

	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history?conversation="+conv.ID(), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
	assert.Equal(t, "table for two", resp.Messages[0].Text)
	assert.Equal(t, "assistant", resp.Messages[1].Role)
}

func TestHandleHistory_BadRequests(t *testing.T) {
	h := NewHandler(newTestManager(), logging.NewWithWriter("error", io.Discard))

	w := httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/chat/history?conversation=nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewHandlerPanicsWithoutManager(t *testing.T) {
	assert.Panics(t, func() { NewHandler(nil, nil) })
}
