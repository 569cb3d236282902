// Package quota tracks the global upstream call budget for a session
// window. The window rolls over automatically: the first check after it
// elapses zeroes every counter and tells the caller to clear cached results
// as well, trading cache effectiveness for a bounded blast radius of stale
// data.
package quota

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/meetmid/places-gateway/internal/domain"
)

// Tracker enforces a ceiling on total upstream calls per session window.
// Cache hits never pass through RecordCall, so they are free.
type Tracker struct {
	clock  clockwork.Clock
	limit  int
	window time.Duration

	mu          sync.Mutex
	total       int
	perCategory map[domain.Category]int
	windowStart time.Time
}

// New creates a Tracker with the given call limit and window duration.
func New(clock clockwork.Clock, limit int, window time.Duration) *Tracker {
	return &Tracker{
		clock:       clock,
		limit:       limit,
		window:      window,
		perCategory: make(map[domain.Category]int),
		windowStart: clock.Now(),
	}
}

// CheckSessionReset rolls the window over if it has elapsed, zeroing all
// counters. Returns true when a reset happened so the caller can also clear
// its result cache.
func (t *Tracker) CheckSessionReset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.clock.Now().Sub(t.windowStart) < t.window {
		return false
	}
	t.resetLocked()
	return true
}

// Admit reports whether another upstream call fits the session budget.
// It never mutates state; the call is only counted once RecordCall runs.
func (t *Tracker) Admit(domain.Category) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total < t.limit
}

// RecordCall counts one attempted upstream call against the session budget.
func (t *Tracker) RecordCall(cat domain.Category) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	t.perCategory[cat]++
}

// Stats returns a snapshot of the session counters.
func (t *Tracker) Stats() domain.SessionStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	per := make(map[domain.Category]int, len(t.perCategory))
	for cat, n := range t.perCategory {
		per[cat] = n
	}
	return domain.SessionStats{
		TotalCalls:      t.total,
		PerCategory:     per,
		SessionLimit:    t.limit,
		WindowStartedAt: t.windowStart,
	}
}

// Reset zeroes all counters and restarts the window. Same effect as an
// automatic rollover, invoked administratively.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Tracker) resetLocked() {
	t.total = 0
	t.perCategory = make(map[domain.Category]int)
	t.windowStart = t.clock.Now()
}
