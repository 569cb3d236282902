// Package gateway mediates every upstream call: results are cached per
// category, the session quota and per-category spacing gates are consulted on
// each miss, and completed calls are recorded against the quota before their
// results are cached.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/meetmid/places-gateway/internal/cache"
	"github.com/meetmid/places-gateway/internal/domain"
	"github.com/meetmid/places-gateway/internal/observability"
	"github.com/meetmid/places-gateway/internal/quota"
	"github.com/meetmid/places-gateway/internal/ratelimit"
)

// Upstream issues provider calls. Implemented by the gmaps client.
type Upstream interface {
	Do(ctx context.Context, req domain.UpstreamRequest) (domain.ProviderResponse, error)
}

// UsagePublisher receives one event per attempted upstream call.
// Implemented by the Kafka usage writer.
type UsagePublisher interface {
	Publish(ctx context.Context, ev domain.UsageEvent) error
}

// Options wires a Gateway. Publisher is optional; GroupSize and GroupDelay
// default to 5 items and 200ms when zero.
type Options struct {
	Cache     *cache.Store
	Quota     *quota.Tracker
	Rate      *ratelimit.Gate
	Upstream  Upstream
	Clock     clockwork.Clock
	Metrics   *observability.Metrics
	Logger    *slog.Logger
	Publisher UsagePublisher

	GroupSize  int
	GroupDelay time.Duration
}

// Gateway orchestrates cache, quota, rate limit, and the upstream client.
type Gateway struct {
	cache     *cache.Store
	quota     *quota.Tracker
	rate      *ratelimit.Gate
	upstream  Upstream
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
	publisher UsagePublisher

	groupSize  int
	groupDelay time.Duration

	// mu keeps the miss→admit sequence atomic across requests, so two
	// concurrent misses cannot both slip past a nearly-spent quota.
	mu sync.Mutex
}

// New creates a Gateway from opts.
func New(opts Options) *Gateway {
	if opts.GroupSize <= 0 {
		opts.GroupSize = 5
	}
	if opts.GroupDelay <= 0 {
		opts.GroupDelay = 200 * time.Millisecond
	}
	return &Gateway{
		cache:      opts.Cache,
		quota:      opts.Quota,
		rate:       opts.Rate,
		upstream:   opts.Upstream,
		clock:      opts.Clock,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		publisher:  opts.Publisher,
		groupSize:  opts.GroupSize,
		groupDelay: opts.GroupDelay,
	}
}

// Fetch returns the cached payload for key or performs the upstream call.
// Cache hits cost nothing; misses must pass the quota and the spacing gate.
// Failure kinds: domain.ErrQuotaExceeded, domain.ErrRateLimited, or a
// domain.UpstreamError.
func (g *Gateway) Fetch(ctx context.Context, cat domain.Category, key string, req domain.UpstreamRequest) (domain.ProviderResponse, error) {
	if g.quota.CheckSessionReset() {
		g.cache.ClearAll()
		g.metrics.SessionCalls.Set(0)
		g.logger.Info("session window rolled over, counters and caches reset")
	}

	g.mu.Lock()
	if resp, ok := g.cache.Get(cat, key); ok {
		g.mu.Unlock()
		g.metrics.CacheLookups.WithLabelValues(string(cat), "hit").Inc()
		return resp, nil
	}
	g.metrics.CacheLookups.WithLabelValues(string(cat), "miss").Inc()

	if !g.quota.Admit(cat) {
		g.mu.Unlock()
		g.metrics.QuotaRejections.WithLabelValues(string(cat)).Inc()
		return domain.ProviderResponse{}, fmt.Errorf("%s: %w", cat, domain.ErrQuotaExceeded)
	}
	if !g.rate.TryAdmit(cat) {
		g.mu.Unlock()
		g.metrics.RateLimitRejections.WithLabelValues(string(cat)).Inc()
		return domain.ProviderResponse{}, fmt.Errorf("%s: %w", cat, domain.ErrRateLimited)
	}

	// The call is definitively attempted once admitted, so it is counted
	// here, inside the critical section. Counting after the call would let
	// concurrent misses in one batch group all pass Admit and push the
	// session total past its limit.
	g.quota.RecordCall(cat)
	total := g.quota.Stats().TotalCalls
	g.mu.Unlock()

	g.metrics.SessionCalls.Set(float64(total))

	start := g.clock.Now()
	resp, err := g.upstream.Do(ctx, req)
	elapsed := g.clock.Now().Sub(start)

	if err != nil {
		g.metrics.UpstreamRequests.WithLabelValues(string(cat), "error").Inc()
		g.publishUsage(ctx, cat, req.Endpoint, upstreamStatus(err), elapsed)
		return domain.ProviderResponse{}, fmt.Errorf("upstream %s: %w", req.Endpoint, err)
	}

	// Quota was recorded before the cache is populated, so the call count
	// never lags behind stored results.
	g.cache.Put(cat, key, resp)
	g.metrics.UpstreamRequests.WithLabelValues(string(cat), outcomeLabel(resp)).Inc()
	g.publishUsage(ctx, cat, req.Endpoint, resp.Status, elapsed)

	g.logger.Debug("upstream call completed",
		"category", cat,
		"endpoint", req.Endpoint,
		"status", resp.Status,
		"duration_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}

// Stats snapshots quota counters and cache sizes.
func (g *Gateway) Stats() (domain.SessionStats, map[domain.Category]int) {
	return g.quota.Stats(), g.cache.Sizes()
}

// Reset clears quota counters and every cache bucket. Administrative
// equivalent of the automatic session rollover.
func (g *Gateway) Reset() {
	g.quota.Reset()
	g.cache.ClearAll()
	g.metrics.SessionCalls.Set(0)
	g.logger.Info("session stats and caches reset")
}

func (g *Gateway) publishUsage(ctx context.Context, cat domain.Category, endpoint, status string, elapsed time.Duration) {
	if g.publisher == nil {
		return
	}
	ev := domain.UsageEvent{
		Category:   cat,
		Endpoint:   endpoint,
		Status:     status,
		DurationMS: elapsed.Milliseconds(),
		OccurredAt: g.clock.Now(),
	}
	// Best effort: the usage stream must never fail a lookup.
	if err := g.publisher.Publish(ctx, ev); err != nil {
		g.metrics.UsagePublishErrors.Inc()
		g.logger.Warn("usage event publish failed", "error", err, "category", cat)
	}
}

func upstreamStatus(err error) string {
	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Status
	}
	return "ERROR"
}

func outcomeLabel(resp domain.ProviderResponse) string {
	if resp.Status == domain.StatusZeroResults {
		return "zero_results"
	}
	return "success"
}
