package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/concierge-dialer/internal/calls"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// FormDispatcher dispatches a validated reservation form.
type FormDispatcher interface {
	DispatchForm(ctx context.Context, form calls.ReservationForm) (calls.Result, []string)
}

// CallsHandler serves direct dispatch, call records and calendar export.
type CallsHandler struct {
	dispatcher FormDispatcher
	store      calls.Store
	loc        *time.Location
	now        func() time.Time
	logger     *logging.Logger
}

// NewCallsHandler creates a calls handler. loc is the reference timezone
// for calendar export.
func NewCallsHandler(dispatcher FormDispatcher, store calls.Store, loc *time.Location, logger *logging.Logger) *CallsHandler {
	if store == nil {
		panic("handlers: call store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CallsHandler{dispatcher: dispatcher, store: store, loc: loc, now: time.Now, logger: logger}
}

// Create handles POST /v1/calls with a reservation form.
func (h *CallsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form calls.ReservationForm
	if !decodeJSON(w, r, &form) {
		return
	}
	res, problems := h.dispatcher.DispatchForm(r.Context(), form)
	if len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false, "error": res.Error, "missing": problems})
		return
	}
	if !res.Queued {
		writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": res.Error, "recordId": res.RecordID})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "callId": res.CallID, "recordId": res.RecordID})
}

// List handles GET /v1/calls?limit=N.
func (h *CallsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := calls.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = n
	}
	recs, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list calls", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	if recs == nil {
		recs = []calls.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": recs})
}

// Get handles GET /v1/calls/{callID}.
func (h *CallsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.record(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Calendar handles GET /v1/calls/{callID}/ics.
func (h *CallsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.record(w, r)
	if !ok {
		return
	}
	body, err := calls.ICS(*rec, h.loc, h.now())
	if err != nil {
		writeError(w, http.StatusConflict, "no_reservation_window")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reservation-%s.ics"`, rec.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type statusUpdate struct {
	Status         string `json:"status"`
	ProviderCallID string `json:"providerCallId"`
	Error          string `json:"error"`
}

// UpdateStatus handles POST /v1/calls/{callID}/status from the call
// provider.
func (h *CallsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "callID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_call_id")
		return
	}
	var body statusUpdate
	if !decodeJSON(w, r, &body) {
		return
	}
	status, ok := calls.ParseStatus(body.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	if err := h.store.UpdateStatus(r.Context(), id, status, body.ProviderCallID, body.Error); err != nil {
		if errors.Is(err, calls.ErrCallNotFound) {
			writeError(w, http.StatusNotFound, "call_not_found")
			return
		}
		h.logger.Error("failed to update call status", "call_id", id.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}
	h.logger.Info("call status updated", "call_id", id.String(), "status", string(status))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CallsHandler) record(w http.ResponseWriter, r *http.Request) (*calls.Record, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "callID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_call_id")
		return nil, false
	}
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, calls.ErrCallNotFound) {
			writeError(w, http.StatusNotFound, "call_not_found")
			return nil, false
		}
		h.logger.Error("failed to load call", "call_id", id.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "load_failed")
		return nil, false
	}
	return rec, true
}
