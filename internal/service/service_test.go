package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/meetmid/places-gateway/internal/config"
	"github.com/meetmid/places-gateway/internal/domain"
	"github.com/meetmid/places-gateway/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	austinGeocodePayload = `[{"formatted_address":"Austin, TX, USA","place_id":"pid-austin","geometry":{"location":{"lat":30.2672,"lng":-97.7431}}}]`
	dallasGeocodePayload = `[{"formatted_address":"Dallas, TX, USA","place_id":"pid-dallas","geometry":{"location":{"lat":32.7767,"lng":-96.797}}}]`
	nearbyPayload        = `[{"place_id":"pid-1","name":"Taco Stand","vicinity":"101 Main St","geometry":{"location":{"lat":30.1,"lng":-97.2}},"rating":4.5,"types":["restaurant","food"]},{"place_id":"pid-2","name":"Noodle Bar","geometry":{"location":{"lat":30.2,"lng":-97.3}}}]`
	detailsPayload       = `{"place_id":"pid-1","name":"Taco Stand","formatted_address":"101 Main St, Austin, TX","formatted_phone_number":"(512) 555-0101","website":"https://tacos.example","rating":4.5,"geometry":{"location":{"lat":30.1,"lng":-97.2}}}`
)

type fetchCall struct {
	cat domain.Category
	key string
	req domain.UpstreamRequest
}

// fakeMediator answers Fetch from a per-key response map, or from a respond
// override when one is set. RunBatch delegates each item to Fetch so service
// tests see the same outcome shape the real gateway produces.
type fakeMediator struct {
	mu        sync.Mutex
	fetches   []fetchCall
	responses map[string]domain.ProviderResponse
	errs      map[string]error
	respond   func(cat domain.Category, key string) (domain.ProviderResponse, error)
	resets    int
}

func newFakeMediator() *fakeMediator {
	return &fakeMediator{
		responses: make(map[string]domain.ProviderResponse),
		errs:      make(map[string]error),
	}
}

func (f *fakeMediator) Fetch(_ context.Context, cat domain.Category, key string, req domain.UpstreamRequest) (domain.ProviderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, fetchCall{cat: cat, key: key, req: req})
	if f.respond != nil {
		return f.respond(cat, key)
	}
	if err, ok := f.errs[key]; ok {
		return domain.ProviderResponse{}, err
	}
	return f.responses[key], nil
}

func (f *fakeMediator) RunBatch(ctx context.Context, cat domain.Category, items []gateway.Item) ([]gateway.Outcome, error) {
	if len(items) == 0 {
		return nil, domain.NewInvalidInput("items", "batch must contain at least one item")
	}
	outcomes := make([]gateway.Outcome, len(items))
	for i, item := range items {
		outcomes[i].Key = item.Key
		if item.Err != nil {
			outcomes[i].Err = item.Err
			continue
		}
		outcomes[i].Response, outcomes[i].Err = f.Fetch(ctx, cat, item.Key, item.Request)
	}
	return outcomes, nil
}

func (f *fakeMediator) Stats() (domain.SessionStats, map[domain.Category]int) {
	return domain.SessionStats{TotalCalls: 7, SessionLimit: 1000}, map[domain.Category]int{domain.CategoryGeocode: 3}
}

func (f *fakeMediator) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeMediator) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

func okResponse(payload string, token string) domain.ProviderResponse {
	return domain.ProviderResponse{Status: domain.StatusOK, Payload: json.RawMessage(payload), NextPageToken: token}
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultRadiusMeters: 1609.34,
		DefaultPlaceType:    "restaurant",
		PageTokenDelay:      2 * time.Second,
	}
}

func newTestService(med *fakeMediator, clock clockwork.Clock) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(med, clock, testConfig(), logger)
}

func TestGeocode_DecodesFirstResult(t *testing.T) {
	med := newFakeMediator()
	med.responses["austin, tx"] = okResponse(austinGeocodePayload, "")
	svc := newTestService(med, clockwork.NewFakeClock())

	got, err := svc.Geocode(context.Background(), "  Austin, TX ")
	require.NoError(t, err)

	assert.True(t, got.Found)
	assert.Equal(t, "Austin, TX", got.Query)
	assert.InDelta(t, 30.2672, got.Lat, 1e-9)
	assert.InDelta(t, -97.7431, got.Lng, 1e-9)
	assert.Equal(t, "pid-austin", got.PlaceID)
	assert.Equal(t, "Austin, TX, USA", got.FormattedAddress)

	require.Len(t, med.fetches, 1)
	assert.Equal(t, domain.CategoryGeocode, med.fetches[0].cat)
	assert.Equal(t, "austin, tx", med.fetches[0].key)
	assert.Equal(t, "Austin, TX", med.fetches[0].req.Params.Get("address"))
}

func TestGeocode_BlankAddressRejectedWithoutFetching(t *testing.T) {
	med := newFakeMediator()
	svc := newTestService(med, clockwork.NewFakeClock())

	_, err := svc.Geocode(context.Background(), "   ")

	var invalid *domain.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "address", invalid.Field)
	assert.Zero(t, med.fetchCount())
}

func TestGeocode_NoMatchIsNotAnError(t *testing.T) {
	med := newFakeMediator()
	med.responses["atlantis"] = domain.ProviderResponse{Status: domain.StatusZeroResults}
	svc := newTestService(med, clockwork.NewFakeClock())

	got, err := svc.Geocode(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.False(t, got.Found)
	assert.Equal(t, "Atlantis", got.Query)
}

func TestGeocodeBatch_MixedOutcomesPreserveOrder(t *testing.T) {
	med := newFakeMediator()
	med.responses["austin, tx"] = okResponse(austinGeocodePayload, "")
	med.responses["dallas, tx"] = okResponse(dallasGeocodePayload, "")
	svc := newTestService(med, clockwork.NewFakeClock())

	got, err := svc.GeocodeBatch(context.Background(), []string{"Austin, TX", "  ", "Dallas, TX"})
	require.NoError(t, err)

	require.Len(t, got.Succeeded, 2)
	assert.Equal(t, "austin, tx", got.Succeeded[0].Key)
	assert.Equal(t, "dallas, tx", got.Succeeded[1].Key)
	require.Len(t, got.Failed, 1)
	assert.Equal(t, "  ", got.Failed[0].Key)
	assert.Contains(t, got.Failed[0].Error, "must not be blank")
	assert.Equal(t, 2, med.fetchCount())
}

func TestGeocodeBatch_EmptyInput(t *testing.T) {
	svc := newTestService(newFakeMediator(), clockwork.NewFakeClock())

	_, err := svc.GeocodeBatch(context.Background(), nil)

	var invalid *domain.InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}

func TestNearby_AppliesDefaults(t *testing.T) {
	med := newFakeMediator()
	med.respond = func(domain.Category, string) (domain.ProviderResponse, error) {
		return okResponse(nearbyPayload, ""), nil
	}
	svc := newTestService(med, clockwork.NewFakeClock())

	_, err := svc.Nearby(context.Background(), domain.NearbyQuery{Lat: 30.2672, Lng: -97.7431})
	require.NoError(t, err)

	require.Len(t, med.fetches, 1)
	call := med.fetches[0]
	assert.Equal(t, domain.CategoryNearbySearch, call.cat)
	assert.Equal(t, "30.267200,-97.743100|1609|restaurant|", call.key)
	assert.Equal(t, "1609", call.req.Params.Get("radius"))
	assert.Equal(t, "restaurant", call.req.Params.Get("type"))
}

func TestNearby_DecodesPlacesAndToken(t *testing.T) {
	med := newFakeMediator()
	med.respond = func(domain.Category, string) (domain.ProviderResponse, error) {
		return okResponse(nearbyPayload, "token-2"), nil
	}
	svc := newTestService(med, clockwork.NewFakeClock())

	page, err := svc.Nearby(context.Background(), domain.NearbyQuery{Lat: 30, Lng: -97})
	require.NoError(t, err)

	assert.Equal(t, "token-2", page.NextPageToken)
	require.Len(t, page.Places, 2)
	assert.Equal(t, "Taco Stand", page.Places[0].Name)
	assert.Equal(t, "101 Main St", page.Places[0].Vicinity)
	assert.InDelta(t, 4.5, page.Places[0].Rating, 1e-9)
	assert.Equal(t, []string{"restaurant", "food"}, page.Places[0].Types)
	assert.Equal(t, "pid-2", page.Places[1].PlaceID)
}

func TestNearby_RejectsOutOfRangeCoordinates(t *testing.T) {
	svc := newTestService(newFakeMediator(), clockwork.NewFakeClock())

	var invalid *domain.InvalidInputError

	_, err := svc.Nearby(context.Background(), domain.NearbyQuery{Lat: 91, Lng: 0})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "lat", invalid.Field)

	_, err = svc.Nearby(context.Background(), domain.NearbyQuery{Lat: 0, Lng: -181})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "lng", invalid.Field)
}

func TestNearby_PageTokenWaitsForActivation(t *testing.T) {
	med := newFakeMediator()
	med.respond = func(domain.Category, string) (domain.ProviderResponse, error) {
		return okResponse(nearbyPayload, ""), nil
	}
	fc := clockwork.NewFakeClock()
	svc := newTestService(med, fc)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Nearby(context.Background(), domain.NearbyQuery{PageToken: "token-2"})
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	assert.Zero(t, med.fetchCount(), "fetch must wait out the token activation delay")

	fc.Advance(2 * time.Second)
	require.NoError(t, <-done)
	assert.Equal(t, 1, med.fetchCount())
	assert.Equal(t, "token-2", med.fetches[0].req.Params.Get("pagetoken"))
}

func TestPlaceDetails_Decodes(t *testing.T) {
	med := newFakeMediator()
	med.responses["pid-1|name,website"] = okResponse(detailsPayload, "")
	svc := newTestService(med, clockwork.NewFakeClock())

	got, err := svc.PlaceDetails(context.Background(), "pid-1", []string{"name", "website"})
	require.NoError(t, err)

	assert.Equal(t, "pid-1", got.PlaceID)
	assert.Equal(t, "Taco Stand", got.Name)
	assert.Equal(t, "(512) 555-0101", got.PhoneNumber)
	assert.Equal(t, "https://tacos.example", got.Website)
	assert.InDelta(t, 30.1, got.Lat, 1e-9)

	require.Len(t, med.fetches, 1)
	assert.Equal(t, domain.CategoryPlaceDetails, med.fetches[0].cat)
	assert.Equal(t, "name,website", med.fetches[0].req.Params.Get("fields"))
}

func TestPlaceDetails_FieldListPartOfKey(t *testing.T) {
	med := newFakeMediator()
	med.responses["pid-1|name"] = okResponse(detailsPayload, "")
	med.responses["pid-1|website"] = okResponse(detailsPayload, "")
	svc := newTestService(med, clockwork.NewFakeClock())

	_, err := svc.PlaceDetails(context.Background(), "pid-1", []string{"name"})
	require.NoError(t, err)
	_, err = svc.PlaceDetails(context.Background(), "pid-1", []string{"website"})
	require.NoError(t, err)

	require.Len(t, med.fetches, 2)
	assert.NotEqual(t, med.fetches[0].key, med.fetches[1].key)
}

func TestPlaceDetails_BlankID(t *testing.T) {
	svc := newTestService(newFakeMediator(), clockwork.NewFakeClock())

	_, err := svc.PlaceDetails(context.Background(), " ", nil)

	var invalid *domain.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "place_id", invalid.Field)
}

func TestPlaceDetailsBatch_SharedFieldList(t *testing.T) {
	med := newFakeMediator()
	med.responses["pid-1|name"] = okResponse(detailsPayload, "")
	med.responses["pid-2|name"] = okResponse(detailsPayload, "")
	svc := newTestService(med, clockwork.NewFakeClock())

	got, err := svc.PlaceDetailsBatch(context.Background(), []string{"pid-1", "", "pid-2"}, []string{"name"})
	require.NoError(t, err)

	require.Len(t, got.Succeeded, 2)
	details, ok := got.Succeeded[0].Value.(domain.PlaceDetails)
	require.True(t, ok)
	assert.Equal(t, "Taco Stand", details.Name)
	require.Len(t, got.Failed, 1)
	assert.Contains(t, got.Failed[0].Error, "must not be blank")
}

func TestBetween_MidpointSearch(t *testing.T) {
	med := newFakeMediator()
	med.respond = func(cat domain.Category, key string) (domain.ProviderResponse, error) {
		switch {
		case cat == domain.CategoryGeocode && key == "austin, tx":
			return okResponse(austinGeocodePayload, ""), nil
		case cat == domain.CategoryGeocode && key == "dallas, tx":
			return okResponse(dallasGeocodePayload, ""), nil
		case cat == domain.CategoryNearbySearch:
			return okResponse(nearbyPayload, ""), nil
		}
		return domain.ProviderResponse{Status: domain.StatusZeroResults}, nil
	}
	svc := newTestService(med, clockwork.NewFakeClock())

	got, err := svc.Between(context.Background(), "Austin, TX", "Dallas, TX", 0, "")
	require.NoError(t, err)

	assert.Equal(t, "pid-austin", got.From.PlaceID)
	assert.Equal(t, "pid-dallas", got.To.PlaceID)
	assert.InDelta(t, 31.52, got.MidLat, 0.05)
	assert.InDelta(t, -97.28, got.MidLng, 0.05)
	assert.InDelta(t, 293_000, got.DistanceMeters, 5_000)
	assert.Len(t, got.Nearby.Places, 2)
	assert.Equal(t, 3, med.fetchCount())
}

func TestBetween_UnresolvableEndpoint(t *testing.T) {
	med := newFakeMediator()
	med.respond = func(cat domain.Category, key string) (domain.ProviderResponse, error) {
		if key == "austin, tx" {
			return okResponse(austinGeocodePayload, ""), nil
		}
		return domain.ProviderResponse{Status: domain.StatusZeroResults}, nil
	}
	svc := newTestService(med, clockwork.NewFakeClock())

	_, err := svc.Between(context.Background(), "Austin, TX", "Atlantis", 0, "")

	var invalid *domain.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "b", invalid.Field)
	assert.Equal(t, 2, med.fetchCount(), "no nearby search after a failed geocode")
}

func TestHealthy(t *testing.T) {
	svc := newTestService(newFakeMediator(), clockwork.NewFakeClock())
	assert.True(t, svc.Healthy())
}

func TestResetStats(t *testing.T) {
	med := newFakeMediator()
	svc := newTestService(med, clockwork.NewFakeClock())

	svc.ResetStats()

	assert.Equal(t, 1, med.resets)
}
