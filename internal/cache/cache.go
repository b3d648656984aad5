// Package cache implements the two-tier read-through cache engine: an
// in-process memory tier in front of a durable store.Store. Values are kept
// as JSON in both tiers.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache is the engine surface consumed by domain wrappers and HTTP handlers.
// *Engine implements it.
type Cache interface {
	// Get returns the raw JSON value for key when present and not expired.
	Get(ctx context.Context, key string) (json.RawMessage, bool)

	// Set stores value under key. A ttl of 0 means the Medium preset.
	Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string)

	// Delete removes key from both tiers.
	Delete(ctx context.Context, key string) bool

	// Invalidate removes every entry selected by opts and returns how many
	// distinct keys were removed.
	Invalidate(ctx context.Context, opts InvalidateOptions) int
}

// Stats describes the memory tier at the time of the call.
type Stats struct {
	TotalKeys   int   `json:"totalKeys"`
	ExpiredKeys int   `json:"expiredKeys"`
	MemoryKeys  int   `json:"memoryKeys"`
	OldestEntry int64 `json:"oldestEntry"` // ms since epoch, 0 when empty
	NewestEntry int64 `json:"newestEntry"`
}

// Metrics are the running counters of an engine. They are reset only by Clear.
type Metrics struct {
	Hits                uint64  `json:"hits"`
	Misses              uint64  `json:"misses"`
	Sets                uint64  `json:"sets"`
	Deletes             uint64  `json:"deletes"`
	Invalidations       uint64  `json:"invalidations"`
	Evictions           uint64  `json:"evictions"`
	HitRate             float64 `json:"hitRate"` // percent
	MemorySize          int64   `json:"memorySize"`
	StorageSize         int64   `json:"storageSize"`
	AverageResponseTime float64 `json:"averageResponseTime"` // ms
}

// InvalidateOptions selects entries for Invalidate. Every non-zero field
// must match for an entry to be removed.
type InvalidateOptions struct {
	// Pattern matches the whole key; '*' matches any run of characters.
	Pattern string `json:"pattern,omitempty"`
	// Tags selects entries carrying at least one of the tags.
	Tags []string `json:"tags,omitempty"`
	// Before selects entries written strictly before this instant.
	Before time.Time `json:"before,omitempty"`
}

// IsZero reports whether opts selects nothing.
func (o InvalidateOptions) IsZero() bool {
	return o.Pattern == "" && len(o.Tags) == 0 && o.Before.IsZero()
}
