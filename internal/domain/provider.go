package domain

import (
	"encoding/json"
	"net/url"
)

// Provider status values the gateway understands. Anything else is an error
// status and surfaces as UpstreamError.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// UpstreamRequest describes one provider call: the endpoint path relative to
// the provider base URL and its query parameters. The API key is appended by
// the provider client, never carried here, so requests are safe to log.
type UpstreamRequest struct {
	Endpoint string
	Params   url.Values
}

// ProviderResponse is the gateway-boundary view of an upstream reply.
// Payload holds the raw "results" array or "result" object; it is nil for
// ZERO_RESULTS. NextPageToken is set when the provider offers a further page
// of nearby-search results.
type ProviderResponse struct {
	Status        string          `json:"status"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

// Empty reports whether the response carries no results.
func (r ProviderResponse) Empty() bool {
	return r.Status == StatusZeroResults || len(r.Payload) == 0
}
