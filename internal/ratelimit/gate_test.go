package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/meetmid/places-gateway/internal/domain"
)

func newTestGate(interval time.Duration) (*Gate, *clockwork.FakeClock) {
	fc := clockwork.NewFakeClock()
	g := New(fc, map[domain.Category]time.Duration{
		domain.CategoryGeocode: interval,
	}, 50*time.Millisecond)
	return g, fc
}

func TestGate_MinimumSpacing(t *testing.T) {
	g, fc := newTestGate(100 * time.Millisecond)

	assert.True(t, g.TryAdmit(domain.CategoryGeocode))

	fc.Advance(10 * time.Millisecond)
	assert.False(t, g.TryAdmit(domain.CategoryGeocode), "10ms after an admit is inside the interval")

	fc.Advance(140 * time.Millisecond)
	assert.True(t, g.TryAdmit(domain.CategoryGeocode), "150ms after an admit is past the interval")
}

func TestGate_RejectionDoesNotResetSpacing(t *testing.T) {
	g, fc := newTestGate(100 * time.Millisecond)

	assert.True(t, g.TryAdmit(domain.CategoryGeocode))

	// Repeated denied attempts must not push the window forward.
	fc.Advance(60 * time.Millisecond)
	assert.False(t, g.TryAdmit(domain.CategoryGeocode))
	fc.Advance(60 * time.Millisecond)
	assert.True(t, g.TryAdmit(domain.CategoryGeocode), "120ms after the last *admitted* call")
}

func TestGate_CategoriesIndependent(t *testing.T) {
	fc := clockwork.NewFakeClock()
	g := New(fc, map[domain.Category]time.Duration{
		domain.CategoryGeocode:      100 * time.Millisecond,
		domain.CategoryNearbySearch: 100 * time.Millisecond,
	}, 0)

	assert.True(t, g.TryAdmit(domain.CategoryGeocode))
	assert.True(t, g.TryAdmit(domain.CategoryNearbySearch), "throttling geocode must not block nearby search")
	assert.False(t, g.TryAdmit(domain.CategoryGeocode))
}

func TestGate_ZeroIntervalAdmitsAll(t *testing.T) {
	fc := clockwork.NewFakeClock()
	g := New(fc, map[domain.Category]time.Duration{domain.CategoryGeocode: 0}, 0)

	for i := 0; i < 5; i++ {
		assert.True(t, g.TryAdmit(domain.CategoryGeocode))
	}
}

func TestGate_DefaultIntervalForUnknownCategory(t *testing.T) {
	g, fc := newTestGate(100 * time.Millisecond)

	cat := domain.Category("future_op")
	assert.True(t, g.TryAdmit(cat))
	assert.False(t, g.TryAdmit(cat))
	fc.Advance(50 * time.Millisecond)
	assert.True(t, g.TryAdmit(cat))

	assert.Equal(t, 50*time.Millisecond, g.Interval(cat))
	assert.Equal(t, 100*time.Millisecond, g.Interval(domain.CategoryGeocode))
}
