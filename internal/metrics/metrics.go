package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache engine metrics, labelled by key domain (first key segment)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agri_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"domain", "tier"}, // tier: memory, storage
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agri_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"domain"},
	)

	CacheSets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agri_cache_sets_total",
			Help: "Total number of cache writes",
		},
		[]string{"domain"},
	)

	CacheDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agri_cache_deletes_total",
			Help: "Total number of explicit cache deletes",
		},
		[]string{"domain"},
	)

	CacheInvalidatedEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agri_cache_invalidated_entries_total",
			Help: "Total number of entries removed by pattern invalidation",
		},
		[]string{"domain"},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agri_cache_memory_evictions_total",
			Help: "Total number of memory-tier evictions caused by the entry cap",
		},
	)

	CacheEntrySize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agri_cache_entry_size_bytes",
			Help:    "Serialized size of cache entries on write",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	CacheGetDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agri_cache_get_duration_seconds",
			Help:    "Duration of cache reads by outcome",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"result"}, // result: hit, miss
	)

	CacheStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agri_cache_store_errors_total",
			Help: "Total number of persistent store failures",
		},
		[]string{"operation"}, // operation: get, set, delete, delete_many, keys, decode
	)

	// Gauges refreshed by the Collector
	CacheMemoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agri_cache_memory_entries",
			Help: "Current number of entries in the memory tier",
		},
	)

	CacheExpiredMemoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agri_cache_memory_expired_entries",
			Help: "Entries in the memory tier that are past their TTL but not yet collected",
		},
	)

	CacheMemoryBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agri_cache_memory_bytes",
			Help: "Approximate serialized size of the memory tier in bytes",
		},
	)

	CacheStorageKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agri_cache_storage_keys",
			Help: "Persisted cache keys seen at the last storage scan",
		},
	)

	CacheHitRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agri_cache_hit_rate_percent",
			Help: "Hit rate of the cache engine since the last clear",
		},
	)

	// Backend (hosted database) metrics
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agri_backend_requests_total",
			Help: "Total number of backend fetches and mutations",
		},
		[]string{"table", "operation", "status"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// Scheduled maintenance jobs
	SchedulerJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "status"},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	// Metrics collection error tracking
	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active cache event stream connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of cache events sent to stream clients",
		},
	)
)
