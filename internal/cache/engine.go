package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onnwee/agrisync/backend/internal/errorreporting"
	"github.com/onnwee/agrisync/backend/internal/logger"
	"github.com/onnwee/agrisync/backend/internal/metrics"
	"github.com/onnwee/agrisync/backend/internal/store"
)

// Defaults applied by New.
const (
	DefaultMaxMemoryEntries = 500
	DefaultKeyPrefix        = "agri_cache:"
	DefaultMetricsKey       = "agri_cache_metrics"
)

// Config is fixed at construction.
type Config struct {
	MaxMemoryEntries int
	EnableMetrics    bool
	// KeyPrefix namespaces cache keys inside the persistent store.
	KeyPrefix string
	// MetricsKey holds the persisted metrics snapshot.
	MetricsKey string
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

type memEntry struct {
	entry *Entry
	seq   uint64 // insertion order, breaks timestamp ties on eviction
}

// Engine is the two-tier cache. The memory tier is a bounded map in front of
// the persistent store; the store is the durable copy. Public methods never
// return store failures: a broken store degrades the engine to memory-only.
//
// An Engine is safe for concurrent use. Store calls are made without holding
// the engine lock.
type Engine struct {
	store    store.Store
	cfg      Config
	log      *slog.Logger
	patterns *patternCache

	initMu   sync.Mutex
	initDone atomic.Bool

	mu           sync.Mutex
	memory       map[string]*memEntry
	seq          uint64
	memBytes     int64
	m            Metrics
	listeners    []listenerEntry
	nextListener ListenerID
}

// New builds an engine over s. The engine initializes itself on first use;
// call Initialize to do it eagerly.
func New(s store.Store, cfg Config) *Engine {
	if cfg.MaxMemoryEntries <= 0 {
		cfg.MaxMemoryEntries = DefaultMaxMemoryEntries
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.MetricsKey == "" {
		cfg.MetricsKey = DefaultMetricsKey
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Engine{
		store:    s,
		cfg:      cfg,
		log:      logger.WithComponent("cache"),
		patterns: newPatternCache(),
		memory:   make(map[string]*memEntry),
	}
}

// Initialize loads the persisted metrics snapshot and purges expired or
// unreadable entries from the store. Only the first call does any work;
// concurrent callers wait for it to finish.
func (e *Engine) Initialize(ctx context.Context) {
	if e.initDone.Load() {
		return
	}
	e.initMu.Lock()
	defer e.initMu.Unlock()
	if e.initDone.Load() {
		return
	}
	defer e.initDone.Store(true)

	e.loadMetrics(ctx)
	removed := e.purgeExpired(ctx)

	e.mu.Lock()
	persisted := e.m.StorageSize
	e.mu.Unlock()
	e.log.Info("Cache initialized", "persisted_keys", persisted, "purged", removed)
}

func (e *Engine) nowMs() int64 { return e.cfg.Clock().UnixMilli() }

func (e *Engine) storageKey(key string) string { return e.cfg.KeyPrefix + key }

// Get returns the raw JSON stored under key. The memory tier is consulted
// first, then the store; a store hit is copied back into memory.
func (e *Engine) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	e.Initialize(ctx)
	start := time.Now()
	now := e.nowMs()

	e.mu.Lock()
	if me, ok := e.memory[key]; ok {
		if !me.entry.Expired(now) {
			data := cloneRaw(me.entry.Data)
			elapsed := e.recordHitLocked(start)
			e.mu.Unlock()
			e.emit(Event{Type: EventHit, Key: key, ResponseTime: elapsed.Milliseconds(), Elapsed: elapsed, Tier: "memory"})
			return data, true
		}
		e.dropLocked(key)
	}
	e.mu.Unlock()

	raw, ok, err := e.store.Get(ctx, e.storageKey(key))
	switch {
	case err != nil:
		e.storeFailure("get", key, err)
	case ok:
		entry, err := decodeEntry(raw)
		if err != nil {
			e.log.Warn("Dropping unreadable cache entry", "key", key, "error", err)
			metrics.CacheStoreErrors.WithLabelValues("decode").Inc()
			if err := e.store.Delete(ctx, e.storageKey(key)); err != nil {
				e.storeFailure("delete", key, err)
			}
			break
		}
		if entry.Expired(now) {
			if err := e.store.Delete(ctx, e.storageKey(key)); err != nil {
				e.storeFailure("delete", key, err)
			}
			break
		}

		e.mu.Lock()
		e.putLocked(key, entry)
		e.evictLocked(key)
		data := cloneRaw(entry.Data)
		elapsed := e.recordHitLocked(start)
		e.mu.Unlock()
		e.emit(Event{Type: EventHit, Key: key, ResponseTime: elapsed.Milliseconds(), Elapsed: elapsed, Tier: "storage"})
		return data, true
	}

	e.mu.Lock()
	elapsed := e.recordMissLocked(start)
	e.mu.Unlock()
	e.emit(Event{Type: EventMiss, Key: key, ResponseTime: elapsed.Milliseconds(), Elapsed: elapsed})
	return nil, false
}

// GetAs decodes the value under key into T. A value that no longer decodes
// into T is treated as a miss.
func GetAs[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var out T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.WarnContext(ctx, "Cached value does not match requested type", "key", key, "error", err)
		var zero T
		return zero, false
	}
	return out, true
}

// Set writes value to memory and then to the store. A store failure leaves
// the memory copy in place. ttl <= 0 means Medium.
func (e *Engine) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) {
	e.Initialize(ctx)

	data, err := json.Marshal(value)
	if err != nil {
		e.log.Warn("Value is not cacheable", "key", key, "error", err)
		return
	}
	if ttl <= 0 {
		ttl = Medium
	}
	entry := &Entry{
		Data:      data,
		Timestamp: e.nowMs(),
		TTL:       ttl.Milliseconds(),
		Key:       key,
		Tags:      slices.Clone(tags),
		Size:      len(data),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		e.log.Warn("Failed to encode cache entry", "key", key, "error", err)
		return
	}

	e.mu.Lock()
	e.putLocked(key, entry)
	e.mu.Unlock()

	if err := e.store.Set(ctx, e.storageKey(key), raw); err != nil {
		e.storeFailure("set", key, err)
	}

	e.mu.Lock()
	e.m.Sets++
	e.mu.Unlock()
	e.emit(Event{Type: EventSet, Key: key, Size: entry.Size})

	e.mu.Lock()
	e.evictLocked("")
	e.mu.Unlock()
}

// SetWithPreset is Set with a named or textual ttl, see ResolveTTL. An
// unknown preset falls back to Medium.
func (e *Engine) SetWithPreset(ctx context.Context, key string, value any, preset string, tags ...string) {
	ttl, err := ResolveTTL(preset)
	if err != nil {
		e.log.Warn("Unknown ttl preset, using medium", "key", key, "preset", preset)
		ttl = Medium
	}
	e.Set(ctx, key, value, ttl, tags...)
}

// Delete removes key from both tiers. The delete is counted and emitted
// either way; it reports false when the store delete failed.
func (e *Engine) Delete(ctx context.Context, key string) bool {
	e.Initialize(ctx)

	e.mu.Lock()
	e.dropLocked(key)
	e.m.Deletes++
	e.mu.Unlock()

	ok := true
	if err := e.store.Delete(ctx, e.storageKey(key)); err != nil {
		e.storeFailure("delete", key, err)
		ok = false
	}
	e.emit(Event{Type: EventDelete, Key: key})
	return ok
}

// Invalidate removes the entries selected by opts from both tiers and
// returns the number of distinct keys removed. Empty options remove nothing.
func (e *Engine) Invalidate(ctx context.Context, opts InvalidateOptions) int {
	e.Initialize(ctx)
	if opts.IsZero() {
		return 0
	}

	m := matcher{opts: opts}
	if opts.Pattern != "" {
		m.re = e.patterns.compile(opts.Pattern)
		if m.re == nil {
			e.log.Warn("Invalid invalidation pattern", "pattern", opts.Pattern)
			return 0
		}
	}
	if !opts.Before.IsZero() {
		m.before = opts.Before.UnixMilli()
	}

	removed := make(map[string]struct{})

	e.mu.Lock()
	for key, me := range e.memory {
		if m.matchKey(key) && m.matchEntry(me.entry) {
			e.dropLocked(key)
			removed[key] = struct{}{}
		}
	}
	e.mu.Unlock()

	keys, err := e.store.Keys(ctx)
	if err != nil {
		e.storeFailure("keys", opts.Pattern, err)
	} else {
		var doomed []string
		for _, sk := range keys {
			key, ok := strings.CutPrefix(sk, e.cfg.KeyPrefix)
			if !ok || !m.matchKey(key) {
				continue
			}
			if m.needsEntry() {
				entry, ok := e.loadEntry(ctx, key)
				if !ok || !m.matchEntry(entry) {
					continue
				}
			}
			doomed = append(doomed, sk)
		}
		if len(doomed) > 0 {
			if err := e.store.DeleteMany(ctx, doomed); err != nil {
				e.storeFailure("delete_many", opts.Pattern, err)
			} else {
				for _, sk := range doomed {
					removed[strings.TrimPrefix(sk, e.cfg.KeyPrefix)] = struct{}{}
				}
			}
		}
	}

	count := len(removed)
	if count > 0 {
		e.mu.Lock()
		e.m.Invalidations += uint64(count)
		e.mu.Unlock()
		e.emit(Event{Type: EventInvalidate, Key: opts.Pattern, Count: count})
	}
	return count
}

type matcher struct {
	opts   InvalidateOptions
	re     *regexp.Regexp
	before int64
}

func (m matcher) needsEntry() bool { return m.before > 0 || len(m.opts.Tags) > 0 }

func (m matcher) matchKey(key string) bool { return m.re == nil || m.re.MatchString(key) }

func (m matcher) matchEntry(entry *Entry) bool {
	if m.before > 0 && entry.Timestamp >= m.before {
		return false
	}
	if len(m.opts.Tags) > 0 && !entry.HasAnyTag(m.opts.Tags) {
		return false
	}
	return true
}

// loadEntry reads and decodes a persisted entry without touching counters.
func (e *Engine) loadEntry(ctx context.Context, key string) (*Entry, bool) {
	raw, ok, err := e.store.Get(ctx, e.storageKey(key))
	if err != nil {
		e.storeFailure("get", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		return nil, false
	}
	return entry, true
}

// PurgeExpired removes expired entries from both tiers, plus persisted
// entries that no longer decode, and returns how many keys were removed.
func (e *Engine) PurgeExpired(ctx context.Context) int {
	e.Initialize(ctx)
	return e.purgeExpired(ctx)
}

func (e *Engine) purgeExpired(ctx context.Context) int {
	now := e.nowMs()
	removed := make(map[string]struct{})

	e.mu.Lock()
	for key, me := range e.memory {
		if me.entry.Expired(now) {
			e.dropLocked(key)
			removed[key] = struct{}{}
		}
	}
	e.mu.Unlock()

	keys, err := e.store.Keys(ctx)
	if err != nil {
		e.storeFailure("keys", "", err)
		return len(removed)
	}

	var (
		doomed    []string
		persisted int64
	)
	for _, sk := range keys {
		key, ok := strings.CutPrefix(sk, e.cfg.KeyPrefix)
		if !ok {
			continue
		}
		persisted++
		raw, ok, err := e.store.Get(ctx, sk)
		if err != nil {
			e.storeFailure("get", key, err)
			continue
		}
		if !ok {
			persisted--
			continue
		}
		entry, err := decodeEntry(raw)
		if err != nil {
			e.log.Warn("Dropping unreadable cache entry", "key", key, "error", err)
			metrics.CacheStoreErrors.WithLabelValues("decode").Inc()
			doomed = append(doomed, sk)
			continue
		}
		if entry.Expired(now) {
			doomed = append(doomed, sk)
		}
	}

	if len(doomed) > 0 {
		if err := e.store.DeleteMany(ctx, doomed); err != nil {
			e.storeFailure("delete_many", "", err)
		} else {
			persisted -= int64(len(doomed))
			for _, sk := range doomed {
				removed[strings.TrimPrefix(sk, e.cfg.KeyPrefix)] = struct{}{}
			}
		}
	}

	e.mu.Lock()
	e.m.StorageSize = persisted
	e.mu.Unlock()

	if len(removed) > 0 {
		e.log.Debug("Purged expired cache entries", "count", len(removed))
	}
	return len(removed)
}

// Stats reports on the memory tier only; it never touches the store.
func (e *Engine) Stats() Stats {
	now := e.nowMs()
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{TotalKeys: len(e.memory), MemoryKeys: len(e.memory)}
	for _, me := range e.memory {
		ts := me.entry.Timestamp
		if me.entry.Expired(now) {
			s.ExpiredKeys++
		}
		if s.OldestEntry == 0 || ts < s.OldestEntry {
			s.OldestEntry = ts
		}
		if ts > s.NewestEntry {
			s.NewestEntry = ts
		}
	}
	return s
}

// Metrics returns a copy of the running counters.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.m
	m.MemorySize = e.memBytes
	return m
}

// Clear empties the memory tier, deletes every persisted cache key and the
// metrics snapshot, and zeroes the counters. Keys outside the cache prefix
// are left alone.
func (e *Engine) Clear(ctx context.Context) {
	e.Initialize(ctx)

	e.mu.Lock()
	e.memory = make(map[string]*memEntry)
	e.memBytes = 0
	e.m = Metrics{}
	e.mu.Unlock()

	keys, err := e.store.Keys(ctx)
	if err != nil {
		e.storeFailure("keys", "", err)
		return
	}
	var doomed []string
	for _, sk := range keys {
		if strings.HasPrefix(sk, e.cfg.KeyPrefix) || sk == e.cfg.MetricsKey {
			doomed = append(doomed, sk)
		}
	}
	if len(doomed) == 0 {
		return
	}
	if err := e.store.DeleteMany(ctx, doomed); err != nil {
		e.storeFailure("delete_many", "", err)
		return
	}
	e.log.Info("Cache cleared", "persisted_keys_removed", len(doomed))
}

// SaveMetrics persists the current counters under MetricsKey so they survive
// a restart.
func (e *Engine) SaveMetrics(ctx context.Context) error {
	raw, err := json.Marshal(e.Metrics())
	if err != nil {
		return err
	}
	if err := e.store.Set(ctx, e.cfg.MetricsKey, raw); err != nil {
		e.storeFailure("set", e.cfg.MetricsKey, err)
		return err
	}
	return nil
}

func (e *Engine) loadMetrics(ctx context.Context) {
	raw, ok, err := e.store.Get(ctx, e.cfg.MetricsKey)
	if err != nil {
		e.storeFailure("get", e.cfg.MetricsKey, err)
		return
	}
	if !ok {
		return
	}
	var m Metrics
	if err := json.Unmarshal(raw, &m); err != nil {
		e.log.Warn("Ignoring unreadable metrics snapshot", "error", err)
		return
	}
	m.MemorySize = 0

	e.mu.Lock()
	e.m = m
	e.mu.Unlock()
}

// Close saves the metrics snapshot and releases the pattern cache. The
// store is owned by the caller and stays open.
func (e *Engine) Close(ctx context.Context) error {
	err := e.SaveMetrics(ctx)
	e.patterns.close()
	return err
}

// putLocked stores entry in memory, replacing any previous entry.
func (e *Engine) putLocked(key string, entry *Entry) {
	if old, ok := e.memory[key]; ok {
		e.memBytes -= int64(old.entry.Size)
	}
	e.seq++
	e.memory[key] = &memEntry{entry: entry, seq: e.seq}
	e.memBytes += int64(entry.Size)
}

func (e *Engine) dropLocked(key string) {
	if me, ok := e.memory[key]; ok {
		e.memBytes -= int64(me.entry.Size)
		delete(e.memory, key)
	}
}

// evictLocked drops the oldest memory entries by write time until the tier
// is back at its cap. keep is never chosen, so an entry just read back from
// the store stays resident. The store is not touched.
func (e *Engine) evictLocked(keep string) {
	over := len(e.memory) - e.cfg.MaxMemoryEntries
	if over <= 0 {
		return
	}

	type candidate struct {
		key string
		ts  int64
		seq uint64
	}
	all := make([]candidate, 0, len(e.memory))
	for k, me := range e.memory {
		if k == keep {
			continue
		}
		all = append(all, candidate{key: k, ts: me.entry.Timestamp, seq: me.seq})
	}
	over = min(over, len(all))
	sort.Slice(all, func(i, j int) bool {
		if all[i].ts != all[j].ts {
			return all[i].ts < all[j].ts
		}
		return all[i].seq < all[j].seq
	})
	for _, c := range all[:over] {
		e.dropLocked(c.key)
	}
	e.m.Evictions += uint64(over)
	metrics.CacheEvictions.Add(float64(over))
}

func (e *Engine) recordHitLocked(start time.Time) time.Duration {
	e.m.Hits++
	return e.recordGetLocked(start)
}

func (e *Engine) recordMissLocked(start time.Time) time.Duration {
	e.m.Misses++
	return e.recordGetLocked(start)
}

func (e *Engine) recordGetLocked(start time.Time) time.Duration {
	elapsed := time.Since(start)
	total := e.m.Hits + e.m.Misses
	e.m.HitRate = float64(e.m.Hits) / float64(total) * 100
	ms := float64(elapsed) / float64(time.Millisecond)
	e.m.AverageResponseTime += (ms - e.m.AverageResponseTime) / float64(total)
	return elapsed
}

// storeFailure logs and reports a persistent tier error. An open breaker is
// expected during an outage and is only counted.
func (e *Engine) storeFailure(op, key string, err error) {
	metrics.CacheStoreErrors.WithLabelValues(op).Inc()
	if errors.Is(err, store.ErrUnavailable) {
		e.log.Debug("Cache store unavailable", "operation", op, "key", key)
		return
	}
	e.log.Warn("Cache store operation failed", "operation", op, "key", key, "error", err)
	errorreporting.CaptureErrorWithContext(err,
		map[string]string{"component": "cache", "op": op},
		map[string]interface{}{"key": key},
	)
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
