package metrics

import (
	"context"
	"time"

	"github.com/onnwee/agrisync/backend/internal/logger"
)

// Sample is a point-in-time view of the cache engine used to refresh gauges.
type Sample struct {
	MemoryEntries  int
	ExpiredEntries int
	MemoryBytes    int64
	StorageKeys    int64
	HitRate        float64
}

// SampleFunc produces a Sample. It must not block on I/O.
type SampleFunc func() Sample

// Collector periodically collects and updates Prometheus gauges
type Collector struct {
	sample   SampleFunc
	interval time.Duration
	stop     chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(sample SampleFunc, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		sample:   sample,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Collect initial metrics
	c.collect()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	close(c.stop)
}

// collect refreshes the cache gauges from one sample.
func (c *Collector) collect() {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Metrics sample panicked", "panic", r)
			MetricsCollectionErrors.WithLabelValues("cache").Inc()
		}
	}()

	s := c.sample()
	CacheMemoryEntries.Set(float64(s.MemoryEntries))
	CacheExpiredMemoryEntries.Set(float64(s.ExpiredEntries))
	CacheMemoryBytes.Set(float64(s.MemoryBytes))
	CacheStorageKeys.Set(float64(s.StorageKeys))
	CacheHitRate.Set(s.HitRate)
}
