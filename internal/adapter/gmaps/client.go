// Package gmaps talks to the Google-Maps-style geocoding/places API. It is
// the only package that knows the provider's wire shapes; everything above
// it sees domain.UpstreamRequest and domain.ProviderResponse.
package gmaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meetmid/places-gateway/internal/domain"
	"github.com/meetmid/places-gateway/internal/observability"
)

// Provider endpoint paths, relative to the base URL.
const (
	EndpointGeocode      = "geocode/json"
	EndpointNearbySearch = "place/nearbysearch/json"
	EndpointPlaceDetails = "place/details/json"
)

// Client issues GET requests against the provider API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a provider client. The timeout bounds every call,
// including body read.
func NewClient(baseURL, apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// providerBody is the provider's response envelope. Geocode and nearby
// search populate "results"; place details populates "result".
type providerBody struct {
	Status        string          `json:"status"`
	Results       json.RawMessage `json:"results"`
	Result        json.RawMessage `json:"result"`
	ErrorMessage  string          `json:"error_message"`
	NextPageToken string          `json:"next_page_token"`
}

// Do executes one upstream request. ZERO_RESULTS comes back as a valid
// empty ProviderResponse; any other non-OK status, and any transport
// failure, is a domain.UpstreamError.
func (c *Client) Do(ctx context.Context, req domain.UpstreamRequest) (domain.ProviderResponse, error) {
	params := url.Values{}
	for k, vs := range req.Params {
		params[k] = vs
	}
	params.Set("key", c.apiKey)

	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, req.Endpoint, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.ProviderResponse{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.UpstreamDuration.WithLabelValues(req.Endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.ProviderResponse{}, &domain.UpstreamError{
			Status:  "TRANSPORT_ERROR",
			Message: err.Error(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.ProviderResponse{}, &domain.UpstreamError{
			Status:  "HTTP_" + strconv.Itoa(resp.StatusCode),
			Message: strings.TrimSpace(string(body)),
		}
	}

	var body providerBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.ProviderResponse{}, &domain.UpstreamError{
			Status:  "DECODE_ERROR",
			Message: err.Error(),
		}
	}

	switch body.Status {
	case domain.StatusOK:
		payload := body.Results
		if len(payload) == 0 {
			payload = body.Result
		}
		return domain.ProviderResponse{
			Status:        domain.StatusOK,
			Payload:       payload,
			NextPageToken: body.NextPageToken,
		}, nil
	case domain.StatusZeroResults:
		c.logger.Debug("provider returned no results", "endpoint", req.Endpoint)
		return domain.ProviderResponse{Status: domain.StatusZeroResults}, nil
	default:
		return domain.ProviderResponse{}, &domain.UpstreamError{
			Status:  body.Status,
			Message: body.ErrorMessage,
		}
	}
}

// GeocodeRequest describes a forward-geocode call for one address.
func GeocodeRequest(address string) domain.UpstreamRequest {
	return domain.UpstreamRequest{
		Endpoint: EndpointGeocode,
		Params:   url.Values{"address": {address}},
	}
}

// NearbyRequest describes a nearby search around a coordinate. With a page
// token the provider ignores all other parameters, so only the token is
// sent.
func NearbyRequest(q domain.NearbyQuery) domain.UpstreamRequest {
	if q.PageToken != "" {
		return domain.UpstreamRequest{
			Endpoint: EndpointNearbySearch,
			Params:   url.Values{"pagetoken": {q.PageToken}},
		}
	}
	return domain.UpstreamRequest{
		Endpoint: EndpointNearbySearch,
		Params: url.Values{
			"location": {fmt.Sprintf("%.6f,%.6f", q.Lat, q.Lng)},
			"radius":   {strconv.FormatFloat(q.Radius, 'f', 0, 64)},
			"type":     {q.Type},
		},
	}
}

// DetailsRequest describes a place-details call. fields narrows the
// response to the given comma-joined field mask when non-empty.
func DetailsRequest(placeID string, fields []string) domain.UpstreamRequest {
	params := url.Values{"place_id": {placeID}}
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	return domain.UpstreamRequest{
		Endpoint: EndpointPlaceDetails,
		Params:   params,
	}
}
