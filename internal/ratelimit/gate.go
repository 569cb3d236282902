// Package ratelimit enforces a minimum spacing between upstream calls per
// category. This is deliberately not a token bucket: no burst credit
// accumulates, so upstream call spacing is strictly predictable.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/meetmid/places-gateway/internal/domain"
)

// Gate admits at most one call per category per minimum interval.
// Categories are fully independent: one being throttled never affects
// another.
type Gate struct {
	clock           clockwork.Clock
	intervals       map[domain.Category]time.Duration
	defaultInterval time.Duration

	mu       sync.Mutex
	lastCall map[domain.Category]time.Time
}

// New creates a Gate with per-category minimum intervals. Categories without
// an entry use defaultInterval; a zero interval admits everything.
func New(clock clockwork.Clock, intervals map[domain.Category]time.Duration, defaultInterval time.Duration) *Gate {
	return &Gate{
		clock:           clock,
		intervals:       intervals,
		defaultInterval: defaultInterval,
		lastCall:        make(map[domain.Category]time.Time),
	}
}

// TryAdmit reports whether a call in cat may proceed now. On admission the
// current time is recorded as the category's last call; a rejection mutates
// nothing, so a denied caller retrying after the interval is not penalized.
func (g *Gate) TryAdmit(cat domain.Category) bool {
	interval, ok := g.intervals[cat]
	if !ok {
		interval = g.defaultInterval
	}
	if interval <= 0 {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if last, ok := g.lastCall[cat]; ok && now.Sub(last) < interval {
		return false
	}
	g.lastCall[cat] = now
	return true
}

// Interval returns the configured minimum spacing for cat, usable as a
// Retry-After hint.
func (g *Gate) Interval(cat domain.Category) time.Duration {
	if interval, ok := g.intervals[cat]; ok {
		return interval
	}
	return g.defaultInterval
}
