// Package domain holds the types shared across the places gateway.
//
// # Categories
//
// Every upstream operation belongs to a category (geocode, nearby search,
// place details). Categories are independent for caching, rate limiting, and
// quota accounting: each carries its own expiry duration, cache size bound,
// and minimum inter-request interval, plus a call counter inside the session
// quota tracker. The Category type is an open string set so new operation
// classes need no changes in the cache, rate, or quota packages.
//
// # Provider responses
//
// The provider speaks a Google-Maps-shaped protocol: every body carries a
// "status" field ("OK", "ZERO_RESULTS", or an error code) and a "results"
// array or "result" object. ZERO_RESULTS is a valid, cacheable outcome, not
// an error; ProviderResponse keeps the distinction so downstream code never
// has to re-inspect raw JSON to tell "empty" from "failed".
//
// # Error taxonomy
//
// Four failure kinds cross the gateway boundary:
//
//   - InvalidInputError: malformed caller parameters; never retried.
//   - ErrQuotaExceeded: the session call budget is spent; not retryable
//     within the current window.
//   - ErrRateLimited: the category's minimum spacing was violated; safe to
//     retry after at least that interval.
//   - UpstreamError: the provider returned a non-OK, non-ZERO_RESULTS status,
//     or the transport failed or timed out. Carries the provider's status and
//     message verbatim for diagnostics.
//
// Batch operations capture per-item failures in BatchResult instead of
// propagating them; only structurally invalid input fails a whole batch.
package domain
