package domain

import "time"

// SessionStats is a snapshot of quota accounting for the current session
// window. TotalCalls always equals the sum of PerCategory outside of a reset.
type SessionStats struct {
	TotalCalls      int              `json:"total_calls"`
	PerCategory     map[Category]int `json:"per_category"`
	SessionLimit    int              `json:"session_limit"`
	WindowStartedAt time.Time        `json:"window_started_at"`
}

// BatchSuccess pairs an input key with its decoded value.
type BatchSuccess struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// BatchFailure pairs an input key with the failure message for that item.
type BatchFailure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// BatchResult aggregates a batch's outcomes. Both slices preserve the
// original input order of their items; a batch never fails as a whole for
// per-item errors.
type BatchResult struct {
	Succeeded []BatchSuccess `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// UsageEvent records one completed upstream call for the usage stream.
type UsageEvent struct {
	Category   Category  `json:"category"`
	Endpoint   string    `json:"endpoint"`
	Status     string    `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}
