package gateway

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/meetmid/places-gateway/internal/domain"
)

// Item is one independent lookup in a batch. A non-nil Err marks an item
// that failed validation before the batch ran; it is recorded as a failure
// without ever reaching the upstream.
type Item struct {
	Key     string
	Request domain.UpstreamRequest
	Err     error
}

// Outcome is one item's settled result. RunBatch returns outcomes in the
// items' original order regardless of completion order.
type Outcome struct {
	Key      string
	Response domain.ProviderResponse
	Err      error
}

// RunBatch fans items out through Fetch in fixed-size groups. Items within a
// group run concurrently and all settle before the next group starts; a
// pacing delay separates groups to spread load beyond what the spacing gate
// alone enforces. Per-item failures never abort siblings; only empty input
// or context cancellation fails the whole call.
func (g *Gateway) RunBatch(ctx context.Context, cat domain.Category, items []Item) ([]Outcome, error) {
	if len(items) == 0 {
		return nil, domain.NewInvalidInput("items", "batch must contain at least one item")
	}

	start := g.clock.Now()
	g.metrics.BatchItems.Observe(float64(len(items)))

	outcomes := make([]Outcome, len(items))
	for groupStart := 0; groupStart < len(items); groupStart += g.groupSize {
		groupEnd := min(groupStart+g.groupSize, len(items))

		eg, groupCtx := errgroup.WithContext(ctx)
		for i := groupStart; i < groupEnd; i++ {
			item := items[i]
			idx := i
			eg.Go(func() error {
				outcomes[idx].Key = item.Key
				if item.Err != nil {
					outcomes[idx].Err = item.Err
					return nil
				}
				resp, err := g.Fetch(groupCtx, cat, item.Key, item.Request)
				outcomes[idx].Response = resp
				outcomes[idx].Err = err
				// Failures are captured per item, never returned, so one
				// item can't cancel its siblings through the group context.
				return nil
			})
		}
		_ = eg.Wait()

		if groupEnd < len(items) {
			if !sleepWithContext(ctx, g.clock, g.groupDelay) {
				return nil, ctx.Err()
			}
		}
	}

	g.metrics.BatchDuration.Observe(g.clock.Now().Sub(start).Seconds())
	return outcomes, nil
}

// sleepWithContext waits d on the gateway clock, returning false if the
// context is cancelled first.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
