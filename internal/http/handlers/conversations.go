package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/concierge-dialer/internal/conversation"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// ConversationManager is the subset of conversation.Manager the handler
// needs.
type ConversationManager interface {
	Create(ctx context.Context) (*conversation.Conversation, error)
	Get(ctx context.Context, id string) (*conversation.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// ConversationHandler is the HTTP fallback for the web chat.
type ConversationHandler struct {
	manager ConversationManager
	logger  *logging.Logger
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(manager ConversationManager, logger *logging.Logger) *ConversationHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConversationHandler{manager: manager, logger: logger}
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// Create handles POST /v1/conversations.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	conv, err := h.manager.Create(r.Context())
	if err != nil {
		h.logger.Error("failed to create conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, conv.Snapshot())
}

// Get handles GET /v1/conversations/{conversationID}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, conv.Snapshot())
}

// Send handles POST /v1/conversations/{conversationID}/messages. The turn
// runs in the background unless ?wait=true is given.
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if wait {
		snap, err := conv.Send(r.Context(), req.Text)
		if err != nil {
			h.writeSendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}

	if err := conv.HandleSend(req.Text); err != nil {
		h.writeSendError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "busy": true})
}

// Delete handles DELETE /v1/conversations/{conversationID}.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.Context(), chi.URLParam(r, "conversationID")); err != nil {
		h.logger.Error("failed to delete conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) lookup(w http.ResponseWriter, r *http.Request) (*conversation.Conversation, bool) {
	id := chi.URLParam(r, "conversationID")
	conv, err := h.manager.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "conversation_not_found")
			return nil, false
		}
		h.logger.Error("failed to load conversation", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "load_failed")
		return nil, false
	}
	return conv, true
}

func (h *ConversationHandler) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrBusy):
		writeError(w, http.StatusConflict, "busy")
	case errors.Is(err, conversation.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "empty_message")
	default:
		h.logger.Error("failed to send message", "error", err)
		writeError(w, http.StatusInternalServerError, "send_failed")
	}
}
