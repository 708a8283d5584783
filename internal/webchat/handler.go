package webchat

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/concierge-dialer/internal/conversation"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// ConversationManager creates and looks up live conversations.
type ConversationManager interface {
	Create(ctx context.Context) (*conversation.Conversation, error)
	Get(ctx context.Context, id string) (*conversation.Conversation, error)
}

// Handler manages web chat connections.
type Handler struct {
	manager ConversationManager
	logger  *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type           string                 `json:"type"` // "session", "snapshot", "typing", "pong", "error"
	Text           string                 `json:"text,omitempty"`
	Code           string                 `json:"code,omitempty"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Snapshot       *conversation.Snapshot `json:"snapshot,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler.
func NewHandler(manager ConversationManager, logger *logging.Logger) *Handler {
	if manager == nil {
		panic("webchat: conversation manager cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
// ?conversation= resumes an existing conversation; without it a new one is
// created.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(ws *websocket.Conn) {
		h.serveWS(newConn(ws), r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(c *conn, r *http.Request) {
	ctx := r.Context()
	conv, err := h.open(ctx, r.URL.Query().Get("conversation"))
	if err != nil {
		code := "open_failed"
		if errors.Is(err, conversation.ErrSessionNotFound) {
			code = "conversation_not_found"
		} else {
			h.logger.Error("webchat: failed to open conversation", "error", err)
		}
		_ = c.send(OutboundMessage{Type: "error", Code: code, Text: "That chat could not be opened."})
		return
	}

	convID := conv.ID()
	_ = c.send(OutboundMessage{Type: "session", ConversationID: convID})
	c.pushSnapshot(conv.Snapshot())

	unsubscribe := conv.OnTurnComplete(c.pushSnapshot)
	defer unsubscribe()

	h.logger.Info("webchat: connection opened", "conversation_id", convID)

	for {
		var msg InboundMessage
		if err := c.receive(&msg); err != nil {
			h.logger.Debug("webchat: connection closed", "conversation_id", convID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = c.send(OutboundMessage{Type: "pong"})
		case "message":
			h.processMessage(c, conv, msg.Text)
		}
	}
}

func (h *Handler) open(ctx context.Context, id string) (*conversation.Conversation, error) {
	if id = strings.TrimSpace(id); id != "" {
		return h.manager.Get(ctx, id)
	}
	return h.manager.Create(ctx)
}

func (h *Handler) processMessage(c *conn, conv *conversation.Conversation, text string) {
	err := conv.HandleSend(text)
	switch {
	case err == nil:
		_ = c.send(OutboundMessage{Type: "typing"})
	case errors.Is(err, conversation.ErrBusy):
		_ = c.send(OutboundMessage{Type: "error", Code: "busy", Text: "Still working on your last message."})
	case errors.Is(err, conversation.ErrEmptyMessage):
		_ = c.send(OutboundMessage{Type: "error", Code: "empty_message"})
	default:
		h.logger.Error("webchat: failed to start turn", "conversation_id", conv.ID(), "error", err)
		_ = c.send(OutboundMessage{Type: "error", Code: "send_failed", Text: "Sorry, something went wrong. Please try again."})
	}
}

// HandleHistory returns the display transcript for ?conversation=.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("conversation"))
	if id == "" {
		http.Error(w, "conversation parameter required", http.StatusBadRequest)
		return
	}

	conv, err := h.manager.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"messages": history(conv.Snapshot())})
}
