// Package service implements the inbound lookup operations. It owns cache
// key construction, input validation, provider payload decoding, and the
// defaults applied to nearby searches. All upstream traffic flows through
// the gateway, which enforces caching, rate limiting, and quota.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/meetmid/places-gateway/internal/adapter/gmaps"
	"github.com/meetmid/places-gateway/internal/config"
	"github.com/meetmid/places-gateway/internal/domain"
	"github.com/meetmid/places-gateway/internal/gateway"
	"github.com/meetmid/places-gateway/internal/geo"
)

// Mediator is the gateway surface the service needs.
type Mediator interface {
	Fetch(ctx context.Context, cat domain.Category, key string, req domain.UpstreamRequest) (domain.ProviderResponse, error)
	RunBatch(ctx context.Context, cat domain.Category, items []gateway.Item) ([]gateway.Outcome, error)
	Stats() (domain.SessionStats, map[domain.Category]int)
	Reset()
}

// Service exposes the lookup operations backed by the gateway.
type Service struct {
	mediator Mediator
	clock    clockwork.Clock
	logger   *slog.Logger

	defaultRadius  float64
	defaultType    string
	pageTokenDelay time.Duration
}

// New builds a Service with defaults taken from configuration.
func New(mediator Mediator, clock clockwork.Clock, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		mediator:       mediator,
		clock:          clock,
		logger:         logger,
		defaultRadius:  cfg.DefaultRadiusMeters,
		defaultType:    cfg.DefaultPlaceType,
		pageTokenDelay: cfg.PageTokenDelay,
	}
}

// Geocode resolves a single address to coordinates. A provider response with
// no matches is not an error: the result comes back with Found == false.
func (s *Service) Geocode(ctx context.Context, address string) (domain.GeocodeResult, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return domain.GeocodeResult{}, domain.NewInvalidInput("address", "must not be blank")
	}
	resp, err := s.mediator.Fetch(ctx, domain.CategoryGeocode, geocodeKey(trimmed), gmaps.GeocodeRequest(trimmed))
	if err != nil {
		return domain.GeocodeResult{}, err
	}
	return decodeGeocode(trimmed, resp)
}

// GeocodeBatch resolves many addresses through the gateway's grouped batch
// runner. Blank addresses fail per item without consuming upstream calls;
// the batch as a whole only fails on empty input or cancellation.
func (s *Service) GeocodeBatch(ctx context.Context, addresses []string) (domain.BatchResult, error) {
	if len(addresses) == 0 {
		return domain.BatchResult{}, domain.NewInvalidInput("addresses", "batch must contain at least one address")
	}
	items := make([]gateway.Item, len(addresses))
	for i, addr := range addresses {
		trimmed := strings.TrimSpace(addr)
		if trimmed == "" {
			items[i] = gateway.Item{Key: addr, Err: domain.NewInvalidInput("address", "must not be blank")}
			continue
		}
		items[i] = gateway.Item{Key: geocodeKey(trimmed), Request: gmaps.GeocodeRequest(trimmed)}
	}
	outcomes, err := s.mediator.RunBatch(ctx, domain.CategoryGeocode, items)
	if err != nil {
		return domain.BatchResult{}, err
	}
	return assembleBatch(outcomes, func(key string, resp domain.ProviderResponse) (any, error) {
		return decodeGeocode(key, resp)
	}), nil
}

// Nearby searches for places around a point. Zero radius and empty type get
// the configured defaults. When a page token is present the location fields
// are ignored and the call waits out the provider's token activation delay.
func (s *Service) Nearby(ctx context.Context, q domain.NearbyQuery) (domain.NearbyPage, error) {
	if q.PageToken == "" {
		if q.Lat < -90 || q.Lat > 90 {
			return domain.NearbyPage{}, domain.NewInvalidInput("lat", "must be between -90 and 90")
		}
		if q.Lng < -180 || q.Lng > 180 {
			return domain.NearbyPage{}, domain.NewInvalidInput("lng", "must be between -180 and 180")
		}
	}
	if q.Radius <= 0 {
		q.Radius = s.defaultRadius
	}
	if q.Type == "" {
		q.Type = s.defaultType
	}
	if q.PageToken != "" {
		if err := s.sleep(ctx, s.pageTokenDelay); err != nil {
			return domain.NearbyPage{}, err
		}
	}
	resp, err := s.mediator.Fetch(ctx, domain.CategoryNearbySearch, nearbyKey(q), gmaps.NearbyRequest(q))
	if err != nil {
		return domain.NearbyPage{}, err
	}
	return decodeNearby(resp)
}

// PlaceDetails fetches the detail fields for one place ID. The field list is
// part of the cache key, so requests for different projections of the same
// place do not collide.
func (s *Service) PlaceDetails(ctx context.Context, placeID string, fields []string) (domain.PlaceDetails, error) {
	id := strings.TrimSpace(placeID)
	if id == "" {
		return domain.PlaceDetails{}, domain.NewInvalidInput("place_id", "must not be blank")
	}
	resp, err := s.mediator.Fetch(ctx, domain.CategoryPlaceDetails, detailsKey(id, fields), gmaps.DetailsRequest(id, fields))
	if err != nil {
		return domain.PlaceDetails{}, err
	}
	return decodeDetails(id, resp)
}

// PlaceDetailsBatch fetches details for many place IDs with a shared field
// list.
func (s *Service) PlaceDetailsBatch(ctx context.Context, placeIDs []string, fields []string) (domain.BatchResult, error) {
	if len(placeIDs) == 0 {
		return domain.BatchResult{}, domain.NewInvalidInput("place_ids", "batch must contain at least one place id")
	}
	items := make([]gateway.Item, len(placeIDs))
	for i, raw := range placeIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			items[i] = gateway.Item{Key: raw, Err: domain.NewInvalidInput("place_id", "must not be blank")}
			continue
		}
		items[i] = gateway.Item{Key: detailsKey(id, fields), Request: gmaps.DetailsRequest(id, fields)}
	}
	outcomes, err := s.mediator.RunBatch(ctx, domain.CategoryPlaceDetails, items)
	if err != nil {
		return domain.BatchResult{}, err
	}
	return assembleBatch(outcomes, func(key string, resp domain.ProviderResponse) (any, error) {
		id, _, _ := strings.Cut(key, "|")
		return decodeDetails(id, resp)
	}), nil
}

// Between geocodes two addresses, computes their spherical midpoint and
// great-circle distance, and searches for places around the midpoint. Either
// address failing to geocode fails the whole lookup.
func (s *Service) Between(ctx context.Context, from, to string, radius float64, placeType string) (domain.BetweenResult, error) {
	a, err := s.Geocode(ctx, from)
	if err != nil {
		return domain.BetweenResult{}, err
	}
	if !a.Found {
		return domain.BetweenResult{}, domain.NewInvalidInput("a", "no geocoding result for address")
	}
	b, err := s.Geocode(ctx, to)
	if err != nil {
		return domain.BetweenResult{}, err
	}
	if !b.Found {
		return domain.BetweenResult{}, domain.NewInvalidInput("b", "no geocoding result for address")
	}

	midLat, midLng := geo.Midpoint(a.Lat, a.Lng, b.Lat, b.Lng)
	page, err := s.Nearby(ctx, domain.NearbyQuery{Lat: midLat, Lng: midLng, Radius: radius, Type: placeType})
	if err != nil {
		return domain.BetweenResult{}, err
	}
	return domain.BetweenResult{
		From:           a,
		To:             b,
		MidLat:         midLat,
		MidLng:         midLng,
		DistanceMeters: geo.HaversineMeters(a.Lat, a.Lng, b.Lat, b.Lng),
		Nearby:         page,
	}, nil
}

// Stats returns the current session quota snapshot and per-category cache
// sizes.
func (s *Service) Stats() (domain.SessionStats, map[domain.Category]int) {
	return s.mediator.Stats()
}

// ResetStats clears quota counters and caches ahead of the session rollover.
func (s *Service) ResetStats() {
	s.mediator.Reset()
	s.logger.Info("session stats reset on request")
}

// Healthy reports whether the service can take traffic. Probing the paid
// provider would consume quota, so this only checks the wiring.
func (s *Service) Healthy() bool {
	return s.mediator != nil
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func geocodeKey(trimmed string) string {
	return strings.ToLower(trimmed)
}

func nearbyKey(q domain.NearbyQuery) string {
	return fmt.Sprintf("%.6f,%.6f|%.0f|%s|%s", q.Lat, q.Lng, q.Radius, q.Type, q.PageToken)
}

func detailsKey(id string, fields []string) string {
	return id + "|" + strings.Join(fields, ",")
}

func assembleBatch(outcomes []gateway.Outcome, decode func(key string, resp domain.ProviderResponse) (any, error)) domain.BatchResult {
	var result domain.BatchResult
	for _, out := range outcomes {
		if out.Err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{Key: out.Key, Error: out.Err.Error()})
			continue
		}
		value, err := decode(out.Key, out.Response)
		if err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{Key: out.Key, Error: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, domain.BatchSuccess{Key: out.Key, Value: value})
	}
	return result
}

type geoLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geometry struct {
	Location geoLocation `json:"location"`
}

type geocodeRow struct {
	FormattedAddress string   `json:"formatted_address"`
	PlaceID          string   `json:"place_id"`
	Geometry         geometry `json:"geometry"`
}

type placeRow struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity"`
	Geometry geometry `json:"geometry"`
	Rating   float64  `json:"rating"`
	Types    []string `json:"types"`
}

type detailsRow struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	PhoneNumber      string   `json:"formatted_phone_number"`
	Website          string   `json:"website"`
	Rating           float64  `json:"rating"`
	Geometry         geometry `json:"geometry"`
}

func decodeGeocode(query string, resp domain.ProviderResponse) (domain.GeocodeResult, error) {
	if resp.Empty() {
		return domain.GeocodeResult{Query: query}, nil
	}
	var rows []geocodeRow
	if err := json.Unmarshal(resp.Payload, &rows); err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("decode geocode payload: %w", err)
	}
	if len(rows) == 0 {
		return domain.GeocodeResult{Query: query}, nil
	}
	first := rows[0]
	return domain.GeocodeResult{
		Query:            query,
		Lat:              first.Geometry.Location.Lat,
		Lng:              first.Geometry.Location.Lng,
		FormattedAddress: first.FormattedAddress,
		PlaceID:          first.PlaceID,
		Found:            true,
	}, nil
}

func decodeNearby(resp domain.ProviderResponse) (domain.NearbyPage, error) {
	page := domain.NearbyPage{Places: []domain.Place{}, NextPageToken: resp.NextPageToken}
	if resp.Empty() {
		return page, nil
	}
	var rows []placeRow
	if err := json.Unmarshal(resp.Payload, &rows); err != nil {
		return domain.NearbyPage{}, fmt.Errorf("decode nearby payload: %w", err)
	}
	for _, r := range rows {
		page.Places = append(page.Places, domain.Place{
			PlaceID:  r.PlaceID,
			Name:     r.Name,
			Vicinity: r.Vicinity,
			Lat:      r.Geometry.Location.Lat,
			Lng:      r.Geometry.Location.Lng,
			Rating:   r.Rating,
			Types:    r.Types,
		})
	}
	return page, nil
}

func decodeDetails(placeID string, resp domain.ProviderResponse) (domain.PlaceDetails, error) {
	if resp.Empty() {
		return domain.PlaceDetails{PlaceID: placeID}, nil
	}
	var row detailsRow
	if err := json.Unmarshal(resp.Payload, &row); err != nil {
		return domain.PlaceDetails{}, fmt.Errorf("decode place details payload: %w", err)
	}
	details := domain.PlaceDetails{
		PlaceID:          row.PlaceID,
		Name:             row.Name,
		FormattedAddress: row.FormattedAddress,
		PhoneNumber:      row.PhoneNumber,
		Website:          row.Website,
		Rating:           row.Rating,
		Lat:              row.Geometry.Location.Lat,
		Lng:              row.Geometry.Location.Lng,
	}
	if details.PlaceID == "" {
		details.PlaceID = placeID
	}
	return details, nil
}
