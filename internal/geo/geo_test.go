package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMidpoint_SamePoint(t *testing.T) {
	lat, lng := Midpoint(30.2672, -97.7431, 30.2672, -97.7431)
	assert.InDelta(t, 30.2672, lat, 1e-9)
	assert.InDelta(t, -97.7431, lng, 1e-9)
}

func TestMidpoint_AustinToDallas(t *testing.T) {
	// Austin (30.2672, -97.7431) to Dallas (32.7767, -96.7970): the midpoint
	// lands near Waco.
	lat, lng := Midpoint(30.2672, -97.7431, 32.7767, -96.7970)
	assert.InDelta(t, 31.52, lat, 0.05)
	assert.InDelta(t, -97.28, lng, 0.05)
}

func TestMidpoint_AcrossAntimeridian(t *testing.T) {
	// Tokyo-ish to Honolulu-ish: a naive lng average would land near 0°
	// (the wrong side of the planet); the vector midpoint stays mid-Pacific.
	_, lng := Midpoint(35.0, 140.0, 21.0, -158.0)
	assert.True(t, lng > 150 || lng < -150, "midpoint lng %f should be near the antimeridian", lng)
}

func TestHaversine_ZeroDistance(t *testing.T) {
	assert.Equal(t, 0.0, HaversineMeters(30.0, -97.0, 30.0, -97.0))
}

func TestHaversine_AustinToDallas(t *testing.T) {
	// Roughly 293 km by great circle.
	d := HaversineMeters(30.2672, -97.7431, 32.7767, -96.7970)
	assert.InDelta(t, 293_000, d, 5_000)
}

func TestHaversine_Symmetric(t *testing.T) {
	a := HaversineMeters(30.2672, -97.7431, 32.7767, -96.7970)
	b := HaversineMeters(32.7767, -96.7970, 30.2672, -97.7431)
	assert.InDelta(t, a, b, 1e-6)
}
