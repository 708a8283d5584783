package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/concierge-dialer/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/concierge-dialer/internal/http/middleware"
	"github.com/wolfman30/concierge-dialer/internal/webchat"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	Conversations *handlers.ConversationHandler
	Calls         *handlers.CallsHandler
	WebChat       *webchat.Handler

	AdminAuthSecret    string
	CallWebhookToken   string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	MessageRatePerSec  float64
	MessageRateBurst   int

	// Readiness checks by name (database, redis). Empty means always ready.
	Readiness map[string]ReadinessCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.MessageRatePerSec > 0 {
		limit = httpmiddleware.RateLimit(cfg.MessageRatePerSec, cfg.MessageRateBurst)
	}
	adminOnly := httpmiddleware.AdminJWT(cfg.AdminAuthSecret)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", readyHandler(cfg.Readiness))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.WebChat != nil {
		r.Route("/chat", func(chat chi.Router) {
			chat.Get("/ws", cfg.WebChat.HandleWebSocket)
			chat.Get("/history", cfg.WebChat.HandleHistory)
		})
	}

	if cfg.Conversations != nil {
		r.Route("/v1/conversations", func(conv chi.Router) {
			conv.Post("/", cfg.Conversations.Create)
			conv.Route("/{conversationID}", func(one chi.Router) {
				one.Get("/", cfg.Conversations.Get)
				one.Delete("/", cfg.Conversations.Delete)
				one.With(limit).Post("/messages", cfg.Conversations.Send)
			})
		})
	}

	if cfg.Calls != nil {
		statusGuard := adminOnly
		if cfg.CallWebhookToken != "" {
			statusGuard = requireWebhookToken(cfg.CallWebhookToken)
		}
		r.Route("/v1/calls", func(calls chi.Router) {
			calls.With(limit).Post("/", cfg.Calls.Create)
			calls.With(adminOnly).Get("/", cfg.Calls.List)
			calls.Route("/{callID}", func(one chi.Router) {
				one.With(adminOnly).Get("/", cfg.Calls.Get)
				one.With(limit).Get("/ics", cfg.Calls.Calendar)
				one.With(statusGuard).Post("/status", cfg.Calls.UpdateStatus)
			})
		})
	}

	return r
}

func readyHandler(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeStatus(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
