package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/meetmid/places-gateway/internal/adapter/gmaps"
	"github.com/meetmid/places-gateway/internal/adapter/httpadapter"
	kafkaadapter "github.com/meetmid/places-gateway/internal/adapter/kafka"
	"github.com/meetmid/places-gateway/internal/cache"
	"github.com/meetmid/places-gateway/internal/config"
	"github.com/meetmid/places-gateway/internal/domain"
	"github.com/meetmid/places-gateway/internal/gateway"
	"github.com/meetmid/places-gateway/internal/observability"
	"github.com/meetmid/places-gateway/internal/quota"
	"github.com/meetmid/places-gateway/internal/ratelimit"
	"github.com/meetmid/places-gateway/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	policies := make(map[domain.Category]cache.Policy, len(cfg.Categories))
	intervals := make(map[domain.Category]time.Duration, len(cfg.Categories))
	for cat, limits := range cfg.Categories {
		policies[cat] = cache.Policy{TTL: limits.CacheTTL, MaxEntries: limits.CacheSize}
		intervals[cat] = limits.MinInterval
	}

	store := cache.New(clock, policies, cache.Policy{TTL: cfg.DefaultLimits.CacheTTL, MaxEntries: cfg.DefaultLimits.CacheSize})
	gate := ratelimit.New(clock, intervals, cfg.DefaultLimits.MinInterval)
	tracker := quota.New(clock, cfg.SessionCallLimit, cfg.SessionWindow)
	upstream := gmaps.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout, metrics, logger)

	// Usage event stream is feature-flagged via KAFKA_ENABLED.
	var publisher gateway.UsagePublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("usage event stream enabled", "topic", cfg.KafkaUsageTopic)
	} else {
		logger.Info("usage event stream disabled")
	}

	gw := gateway.New(gateway.Options{
		Cache:      store,
		Quota:      tracker,
		Rate:       gate,
		Upstream:   upstream,
		Clock:      clock,
		Metrics:    metrics,
		Logger:     logger,
		Publisher:  publisher,
		GroupSize:  cfg.BatchGroupSize,
		GroupDelay: cfg.BatchGroupDelay,
	})

	svc := service.New(gw, clock, cfg, logger)
	srv := httpadapter.NewServer(cfg, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
