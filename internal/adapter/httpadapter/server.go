package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meetmid/places-gateway/internal/config"
	"github.com/meetmid/places-gateway/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LookupService is the service surface the HTTP layer needs.
type LookupService interface {
	Geocode(ctx context.Context, address string) (domain.GeocodeResult, error)
	GeocodeBatch(ctx context.Context, addresses []string) (domain.BatchResult, error)
	Nearby(ctx context.Context, q domain.NearbyQuery) (domain.NearbyPage, error)
	PlaceDetails(ctx context.Context, placeID string, fields []string) (domain.PlaceDetails, error)
	PlaceDetailsBatch(ctx context.Context, placeIDs []string, fields []string) (domain.BatchResult, error)
	Between(ctx context.Context, from, to string, radius float64, placeType string) (domain.BetweenResult, error)
	Stats() (domain.SessionStats, map[domain.Category]int)
	ResetStats()
	Healthy() bool
}

// Server exposes the lookup API plus health and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	service    LookupService
	logger     *slog.Logger

	retryHints   map[domain.Category]time.Duration
	defaultRetry time.Duration
}

// NewServer creates an HTTP server with the lookup API routes mounted under
// /api, plus /healthz and /metrics.
func NewServer(cfg *config.Config, svc LookupService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	hints := make(map[domain.Category]time.Duration, len(cfg.Categories))
	for cat, limits := range cfg.Categories {
		hints[cat] = limits.MinInterval
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service:      svc,
		logger:       logger,
		retryHints:   hints,
		defaultRetry: cfg.DefaultLimits.MinInterval,
	}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/geocode", s.handleGeocode)
	mux.HandleFunc("POST /api/geocode/batch", s.handleGeocodeBatch)
	mux.HandleFunc("GET /api/nearby", s.handleNearby)
	mux.HandleFunc("GET /api/place", s.handlePlace)
	mux.HandleFunc("POST /api/place/batch", s.handlePlaceBatch)
	mux.HandleFunc("GET /api/between", s.handleBetween)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/stats/reset", s.handleStatsReset)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.service.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Geocode(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		s.writeError(w, domain.CategoryGeocode, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type geocodeBatchRequest struct {
	Addresses []string `json:"addresses"`
}

func (s *Server) handleGeocodeBatch(w http.ResponseWriter, r *http.Request) {
	var req geocodeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.CategoryGeocode, domain.NewInvalidInput("body", "must be valid json"))
		return
	}
	result, err := s.service.GeocodeBatch(r.Context(), req.Addresses)
	if err != nil {
		s.writeError(w, domain.CategoryGeocode, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := parseFloat(q, "lat")
	if err != nil {
		s.writeError(w, domain.CategoryNearbySearch, err)
		return
	}
	lng, err := parseFloat(q, "lng")
	if err != nil {
		s.writeError(w, domain.CategoryNearbySearch, err)
		return
	}
	radius, err := parseFloat(q, "radius")
	if err != nil {
		s.writeError(w, domain.CategoryNearbySearch, err)
		return
	}
	pageToken := q.Get("pagetoken")
	if pageToken == "" && (q.Get("lat") == "" || q.Get("lng") == "") {
		s.writeError(w, domain.CategoryNearbySearch, domain.NewInvalidInput("location", "lat and lng are required without a pagetoken"))
		return
	}
	page, err := s.service.Nearby(r.Context(), domain.NearbyQuery{
		Lat:       lat,
		Lng:       lng,
		Radius:    radius,
		Type:      q.Get("type"),
		PageToken: pageToken,
	})
	if err != nil {
		s.writeError(w, domain.CategoryNearbySearch, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	details, err := s.service.PlaceDetails(r.Context(), q.Get("id"), splitFields(q.Get("fields")))
	if err != nil {
		s.writeError(w, domain.CategoryPlaceDetails, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type placeBatchRequest struct {
	PlaceIDs []string `json:"place_ids"`
	Fields   []string `json:"fields"`
}

func (s *Server) handlePlaceBatch(w http.ResponseWriter, r *http.Request) {
	var req placeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.CategoryPlaceDetails, domain.NewInvalidInput("body", "must be valid json"))
		return
	}
	result, err := s.service.PlaceDetailsBatch(r.Context(), req.PlaceIDs, req.Fields)
	if err != nil {
		s.writeError(w, domain.CategoryPlaceDetails, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBetween(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	radius, err := parseFloat(q, "radius")
	if err != nil {
		s.writeError(w, domain.CategoryNearbySearch, err)
		return
	}
	result, err := s.service.Between(r.Context(), q.Get("a"), q.Get("b"), radius, q.Get("type"))
	if err != nil {
		s.writeError(w, domain.CategoryNearbySearch, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type statsResponse struct {
	Session    domain.SessionStats     `json:"session"`
	CacheSizes map[domain.Category]int `json:"cache_sizes"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	session, sizes := s.service.Stats()
	writeJSON(w, http.StatusOK, statsResponse{Session: session, CacheSizes: sizes})
}

func (s *Server) handleStatsReset(w http.ResponseWriter, _ *http.Request) {
	s.service.ResetStats()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, cat domain.Category, err error) {
	var invalid *domain.InvalidInputError
	var upstream *domain.UpstreamError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		if d := s.retryAfter(cat); d > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(d)))
		}
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
	case errors.As(err, &upstream):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) retryAfter(cat domain.Category) time.Duration {
	if d, ok := s.retryHints[cat]; ok {
		return d
	}
	return s.defaultRetry
}

// ceilSeconds rounds a duration up to whole seconds, with a floor of one so
// the Retry-After header is never zero.
func ceilSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func parseFloat(q url.Values, name string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, domain.NewInvalidInput(name, "must be a number")
	}
	return v, nil
}

func splitFields(raw string) []string {
	if raw == "" {
		return nil
	}
	var fields []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	return fields
}
