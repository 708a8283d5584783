package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/concierge-dialer/internal/api/router"
	"github.com/wolfman30/concierge-dialer/internal/calls"
	appconfig "github.com/wolfman30/concierge-dialer/internal/config"
	"github.com/wolfman30/concierge-dialer/internal/conversation"
	"github.com/wolfman30/concierge-dialer/internal/observability/metrics"
	"github.com/wolfman30/concierge-dialer/internal/places"
	"github.com/wolfman30/concierge-dialer/pkg/logging"
)

// connectPostgresPool returns nil when no URL is configured or the database
// is unreachable; call records then stay in memory.
func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		logger.Warn("DATABASE_URL not set; call records are kept in memory")
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to reach postgres", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("connected to postgres")
	return pool
}

// connectRedis returns nil when no address is configured or Redis does not
// answer; sessions then live only in process.
func connectRedis(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		logger.Warn("REDIS_ADDR not set; sessions are not persisted")
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("failed to reach redis", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("connected to redis", "addr", cfg.RedisAddr)
	return client
}

func setupMetrics() (http.Handler, *metrics.TurnMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewTurnMetrics(reg)
}

func setupResolver(cfg *appconfig.Config, logger *logging.Logger) (*places.Resolver, error) {
	directory, err := places.LoadDirectory(cfg.KnownBusinessesFile)
	if err != nil {
		return nil, err
	}
	var lookup places.Lookup
	if strings.TrimSpace(cfg.PlacesURL) != "" {
		lookup = places.NewClient(cfg.PlacesURL, places.WithAPIKey(cfg.PlacesAPIKey), places.WithLogger(logger))
	}
	logger.Info("destination resolver ready", "known_businesses", directory.Len(), "place_lookup", lookup != nil)
	return places.NewResolver(directory, lookup, logger), nil
}

func setupCallStore(pool *pgxpool.Pool) calls.Store {
	if pool == nil {
		return calls.NewMemoryStore()
	}
	return calls.NewPGStore(pool)
}

func setupSessionStore(client *redis.Client, ttl time.Duration) conversation.SessionStore {
	if client == nil {
		return conversation.NewMemorySessionStore()
	}
	return conversation.NewRedisSessionStore(client, ttl)
}

func readinessChecks(pool *pgxpool.Pool, client *redis.Client) map[string]router.ReadinessCheck {
	checks := map[string]router.ReadinessCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return checks
}
