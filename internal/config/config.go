package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/meetmid/places-gateway/internal/domain"
)

// CategoryLimits tunes one request category: cache expiry, cache size bound,
// and the minimum spacing between upstream calls.
type CategoryLimits struct {
	CacheTTL    time.Duration
	CacheSize   int
	MinInterval time.Duration
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Provider configuration.
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	// Session quota.
	SessionCallLimit int
	SessionWindow    time.Duration

	// Per-category mediation limits, plus the fallback for ad-hoc categories.
	Categories    map[domain.Category]CategoryLimits
	DefaultLimits CategoryLimits

	// Batch pacing.
	BatchGroupSize  int
	BatchGroupDelay time.Duration

	// Provider page tokens are not valid immediately after being issued.
	PageTokenDelay time.Duration

	// Nearby-search defaults.
	DefaultRadiusMeters float64
	DefaultPlaceType    string

	// Usage-event stream (feature-flagged via KAFKA_ENABLED).
	KafkaBrokers    []string
	KafkaUsageTopic string
	KafkaEnabled    bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	providerTimeout, err := envDuration("PROVIDER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	sessionWindow, err := envDuration("SESSION_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	groupDelay, err := envDuration("BATCH_GROUP_DELAY", 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	pageTokenDelay, err := envDuration("PAGE_TOKEN_DELAY", 2*time.Second)
	if err != nil {
		return nil, err
	}

	sessionLimit, err := envInt("SESSION_CALL_LIMIT", 1000)
	if err != nil {
		return nil, err
	}
	groupSize, err := envInt("BATCH_GROUP_SIZE", 5)
	if err != nil {
		return nil, err
	}

	geocode, err := loadCategoryLimits("GEOCODE", CategoryLimits{
		CacheTTL: 24 * time.Hour, CacheSize: 500, MinInterval: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	nearby, err := loadCategoryLimits("NEARBY", CategoryLimits{
		CacheTTL: time.Hour, CacheSize: 200, MinInterval: 200 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	details, err := loadCategoryLimits("DETAILS", CategoryLimits{
		CacheTTL: 24 * time.Hour, CacheSize: 300, MinInterval: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ProviderBaseURL: envOrDefault("PROVIDER_BASE_URL", "https://maps.googleapis.com/maps/api"),
		ProviderAPIKey:  os.Getenv("PROVIDER_API_KEY"),
		ProviderTimeout: providerTimeout,

		SessionCallLimit: sessionLimit,
		SessionWindow:    sessionWindow,

		Categories: map[domain.Category]CategoryLimits{
			domain.CategoryGeocode:      geocode,
			domain.CategoryNearbySearch: nearby,
			domain.CategoryPlaceDetails: details,
		},
		DefaultLimits: CategoryLimits{
			CacheTTL: time.Hour, CacheSize: 200, MinInterval: 200 * time.Millisecond,
		},

		BatchGroupSize:  groupSize,
		BatchGroupDelay: groupDelay,
		PageTokenDelay:  pageTokenDelay,

		DefaultRadiusMeters: 1609.34, // one mile
		DefaultPlaceType:    "restaurant",

		KafkaBrokers:    parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaUsageTopic: envOrDefault("KAFKA_USAGE_TOPIC", "places-gateway-usage"),
		KafkaEnabled:    kafkaEnabled,
	}

	if cfg.ProviderAPIKey == "" {
		return nil, errors.New("PROVIDER_API_KEY is required")
	}
	if cfg.ProviderBaseURL == "" {
		return nil, errors.New("PROVIDER_BASE_URL is required")
	}
	if cfg.SessionCallLimit <= 0 {
		return nil, errors.New("SESSION_CALL_LIMIT must be positive")
	}
	if cfg.BatchGroupSize <= 0 {
		return nil, errors.New("BATCH_GROUP_SIZE must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// loadCategoryLimits reads <PREFIX>_CACHE_TTL, <PREFIX>_CACHE_SIZE, and
// <PREFIX>_MIN_INTERVAL, falling back to the given defaults.
func loadCategoryLimits(prefix string, def CategoryLimits) (CategoryLimits, error) {
	ttl, err := envDuration(prefix+"_CACHE_TTL", def.CacheTTL)
	if err != nil {
		return CategoryLimits{}, err
	}
	size, err := envInt(prefix+"_CACHE_SIZE", def.CacheSize)
	if err != nil {
		return CategoryLimits{}, err
	}
	interval, err := envDuration(prefix+"_MIN_INTERVAL", def.MinInterval)
	if err != nil {
		return CategoryLimits{}, err
	}
	return CategoryLimits{CacheTTL: ttl, CacheSize: size, MinInterval: interval}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
