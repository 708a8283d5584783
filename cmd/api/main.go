package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfman30/concierge-dialer/internal/api/router"
	"github.com/wolfman30/concierge-dialer/internal/brain"
	"github.com/wolfman30/concierge-dialer/internal/calls"
	appconfig "github.com/wolfman30/concierge-dialer/internal/config"
	"github.com/wolfman30/concierge-dialer/internal/conversation"
	"github.com/wolfman30/concierge-dialer/internal/http/handlers"
	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/slots"
	"github.com/wolfman30/concierge-dialer/internal/webchat"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting concierge-dialer API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, _ := time.LoadLocation(cfg.ReferenceTimezone)
	dates := naturaldate.NewParserInLocation(loc)

	resolver, err := setupResolver(cfg, logger)
	if err != nil {
		logger.Error("failed to load known businesses", "error", err)
		os.Exit(1)
	}

	callClient, err := calls.NewClient(calls.ClientConfig{
		URL:      cfg.CallNowURL,
		APIKey:   cfg.CallNowAPIKey,
		DevToken: cfg.CallDevToken,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to create call client", "error", err)
		os.Exit(1)
	}

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	redisClient := connectRedis(ctx, cfg, logger)
	metricsHandler, turnMetrics := setupMetrics()

	callStore := setupCallStore(pool)
	dispatcher := calls.NewDispatcher(callClient,
		calls.WithStore(callStore),
		calls.WithFinder(resolver),
		calls.WithDates(dates),
		calls.WithRecorder(turnMetrics),
		calls.WithSource(cfg.CallSource),
		calls.WithLogger(logger),
	)

	brainClient := brain.NewClient(cfg.BrainURL,
		brain.WithAPIKey(cfg.BrainAPIKey),
		brain.WithModel(cfg.BrainModel),
		brain.WithTimeout(cfg.BrainTimeout),
		brain.WithLogger(logger),
	)
	orch := conversation.NewOrchestrator(brainClient, conversation.Config{
		Normalizer:    slots.NewNormalizer(dates),
		Dispatcher:    dispatcher,
		Resolver:      resolver,
		Metrics:       turnMetrics,
		Logger:        logger,
		MaxToolRounds: cfg.MaxToolRounds,
		TurnTimeout:   cfg.TurnTimeout,
	})
	manager := conversation.NewManager(orch, setupSessionStore(redisClient, cfg.SessionTTL), logger)

	r := router.New(&router.Config{
		Logger:             logger,
		Conversations:      handlers.NewConversationHandler(manager, logger),
		Calls:              handlers.NewCallsHandler(dispatcher, callStore, loc, logger),
		WebChat:            webchat.NewHandler(manager, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CallWebhookToken:   cfg.CallWebhookToken,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MessageRatePerSec:  cfg.MessageRatePerSec,
		MessageRateBurst:   cfg.MessageRateBurst,
		Readiness:          readinessChecks(pool, redisClient),
	})

	// Turns with ?wait=true and web chat sockets outlive a short write
	// timeout, so only header reads are bounded.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if pool != nil {
		pool.Close()
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
