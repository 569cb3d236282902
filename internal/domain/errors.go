package domain

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded is returned when the session call limit has been reached.
// The quota resets when the session window rolls over.
var ErrQuotaExceeded = errors.New("session call quota exceeded")

// ErrRateLimited is returned when a category's minimum inter-request
// interval has not yet elapsed. Callers may retry after the interval.
var ErrRateLimited = errors.New("rate limited")

// InvalidInputError reports a malformed or missing caller-supplied parameter.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// NewInvalidInput builds an InvalidInputError for the given field.
func NewInvalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// UpstreamError reports a provider failure: a non-OK, non-ZERO_RESULTS
// status, or a transport failure/timeout. Status and Message are passed
// through from the provider verbatim.
type UpstreamError struct {
	Status  string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream error: %s", e.Status)
	}
	return fmt.Sprintf("upstream error: %s: %s", e.Status, e.Message)
}
