package config

import (
	"os"
	"strings"
	"time"

	"github.com/onnwee/agrisync/backend/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	HTTPAddr string
	// Admin API token for gating cache admin endpoints (Bearer token)
	AdminAPIToken string

	// Cache engine
	CacheStore            string // memory, postgres or redis
	CacheKeyPrefix        string // namespace for persisted entries
	CacheMetricsKey       string // key holding the persisted metrics snapshot
	CacheMaxMemoryEntries int
	CacheEnableMetrics    bool
	CacheSweepSchedule    string // scheduler expression for the expired-entry sweep
	CacheSnapshotSchedule string // scheduler expression for metrics snapshots
	CacheCollectInterval  time.Duration
	// Per-domain TTL overrides keyed by domain name (CACHE_TTL_<DOMAIN>)
	CacheTTLOverrides map[string]time.Duration

	// Persistent tier backends
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Persistent tier circuit breaker
	StoreBreakerFailures int
	StoreBreakerTimeout  time.Duration

	// Hosted backend
	SupabaseURL string
	SupabaseKey string

	// Security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	EnableRateLimit      bool     // enable rate limiting middleware
	CORSAllowedOrigins   []string // allowed CORS origins

	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

// ttlDomains lists the cache domains whose default TTL can be overridden.
var ttlDomains = []string{
	"cooperatives", "producers", "plots", "notifications", "participants", "recommendations",
	"seasons", "inputs", "intervenants", "agent_assignments", "auth",
	"notifications_unread", "agent_assignments_workload",
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		HTTPAddr:      utils.GetEnvAsString("HTTP_ADDR", ":8000"),
		AdminAPIToken: strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN")),

		CacheStore:            strings.ToLower(utils.GetEnvAsString("CACHE_STORE", "memory")),
		CacheKeyPrefix:        utils.GetEnvAsString("CACHE_KEY_PREFIX", "agri_cache:"),
		CacheMetricsKey:       utils.GetEnvAsString("CACHE_METRICS_KEY", "agri_cache_metrics"),
		CacheMaxMemoryEntries: utils.GetEnvAsInt("CACHE_MAX_MEMORY_ENTRIES", 500),
		CacheEnableMetrics:    utils.GetEnvAsBool("CACHE_ENABLE_METRICS", true),
		CacheSweepSchedule:    utils.GetEnvAsString("CACHE_SWEEP_SCHEDULE", "@every 10m"),
		CacheSnapshotSchedule: utils.GetEnvAsString("CACHE_SNAPSHOT_SCHEDULE", "@every 1m"),
		CacheCollectInterval:  utils.GetEnvAsDuration("CACHE_COLLECT_INTERVAL", 15*time.Second),
		CacheTTLOverrides:     loadTTLOverrides(),

		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:     utils.GetEnvAsString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       utils.GetEnvAsInt("REDIS_DB", 0),

		StoreBreakerFailures: utils.GetEnvAsInt("STORE_BREAKER_FAILURES", 5),
		StoreBreakerTimeout:  utils.GetEnvAsDuration("STORE_BREAKER_TIMEOUT", 30*time.Second),

		SupabaseURL: strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseKey: strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY")),

		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		CORSAllowedOrigins: utils.GetEnvAsSlice("CORS_ALLOWED_ORIGINS",
			[]string{"http://localhost:5173", "http://localhost:19006"}, ","),

		LogLevel:          strings.ToLower(utils.GetEnvAsString("LOG_LEVEL", "info")),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.CacheMaxMemoryEntries <= 0 {
		cached.CacheMaxMemoryEntries = 500
	}
	if cached.SentryEnvironment == "" {
		cached.SentryEnvironment = utils.GetEnvAsString("ENV", "development")
	}

	return cached
}

// loadTTLOverrides collects CACHE_TTL_<DOMAIN> values, e.g. CACHE_TTL_SEASONS=1h.
func loadTTLOverrides() map[string]time.Duration {
	out := make(map[string]time.Duration)
	for _, domain := range ttlDomains {
		if d := utils.GetEnvAsDuration("CACHE_TTL_"+strings.ToUpper(domain), 0); d > 0 {
			out[domain] = d
		}
	}
	return out
}

// TTLFor returns the configured TTL for domain, or def when no override is set.
func (c *Config) TTLFor(domain string, def time.Duration) time.Duration {
	if d, ok := c.CacheTTLOverrides[domain]; ok {
		return d
	}
	return def
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
