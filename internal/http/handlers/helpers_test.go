package handlers

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/concierge-dialer/internal/brain"
	"github.com/wolfman30/concierge-dialer/internal/calls"
	"github.com/wolfman30/concierge-dialer/internal/conversation"
	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/slots"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

func quietLogger() *logging.Logger { return logging.NewWithWriter("error", io.Discard) }

type echoBrain struct{}

func (echoBrain) Send(_ context.Context, req brain.Request) (*brain.Reply, error) {
	last := req.Messages[len(req.Messages)-1].Content
	content := "You said: " + last
	return &brain.Reply{Content: content, Assistant: brain.Message{Role: brain.RoleAssistant, Content: content}}, nil
}

type noopPlacer struct{}

func (noopPlacer) Place(context.Context, calls.Request) (calls.PlaceResult, error) {
	return calls.PlaceResult{CallID: "call-1"}, nil
}

func newTestManager(t *testing.T) *conversation.Manager {
	t.Helper()
	orch := conversation.NewOrchestrator(echoBrain{}, conversation.Config{
		Normalizer: slots.NewNormalizer(naturaldate.NewParserInLocation(nil)),
		Dispatcher: calls.NewDispatcher(noopPlacer{}, calls.WithLogger(quietLogger())),
		Logger:     quietLogger(),
	})
	return conversation.NewManager(orch, conversation.NewMemorySessionStore(), quietLogger())
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
