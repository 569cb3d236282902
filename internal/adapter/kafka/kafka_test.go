package kafka

import (
	"testing"
	"time"

	"github.com/meetmid/places-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 8, 29, 15, 10, 0, 0, time.UTC)
	event := domain.UsageEvent{
		Category:   domain.CategoryGeocode,
		Endpoint:   "geocode/json",
		Status:     "success",
		DurationMS: 84,
		OccurredAt: now,
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("geocode"), msg.Key)
	assert.Contains(t, string(msg.Value), `"endpoint":"geocode/json"`)
	assert.Contains(t, string(msg.Value), `"duration_ms":84`)
	assert.Len(t, msg.Headers, 3)
	assert.Equal(t, "endpoint", msg.Headers[0].Key)
	assert.Equal(t, []byte("geocode/json"), msg.Headers[0].Value)
	assert.Equal(t, "status", msg.Headers[1].Key)
	assert.Equal(t, []byte("success"), msg.Headers[1].Value)
	assert.Equal(t, "occurred_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessage_KeyedByCategory(t *testing.T) {
	msg, err := serializeToMessage(domain.UsageEvent{Category: domain.CategoryNearbySearch})
	require.NoError(t, err)
	assert.Equal(t, []byte("nearby_search"), msg.Key)
}
