// Package domaincache binds one entity's key namespace and TTLs to the
// shared cache engine behind a typed API.
package domaincache

import (
	"context"
	"time"

	"github.com/onnwee/agrisync/backend/internal/cache"
	"github.com/onnwee/agrisync/backend/internal/cachekey"
)

// Spec configures a Wrapper. Zero TTLs fall back to DefaultTTL, and a zero
// DefaultTTL to cache.Medium.
type Spec struct {
	Domain     string
	DefaultTTL time.Duration
	ListTTL    time.Duration
	StatsTTL   time.Duration
}

// IndexRef names one value of a secondary index, e.g. {"agent", "a-12"}.
type IndexRef struct {
	Index string
	Value string
}

// Wrapper is the typed cache of one domain: T is the entity, D the entity
// with its related rows, S the domain aggregate. Every ttl argument of 0
// means the wrapper default.
type Wrapper[T, D, S any] struct {
	c    cache.Cache
	spec Spec
}

// New builds a wrapper over c.
func New[T, D, S any](c cache.Cache, spec Spec) *Wrapper[T, D, S] {
	if spec.DefaultTTL <= 0 {
		spec.DefaultTTL = cache.Medium
	}
	if spec.ListTTL <= 0 {
		spec.ListTTL = spec.DefaultTTL
	}
	if spec.StatsTTL <= 0 {
		spec.StatsTTL = spec.DefaultTTL
	}
	return &Wrapper[T, D, S]{c: c, spec: spec}
}

// Domain returns the key namespace.
func (w *Wrapper[T, D, S]) Domain() string { return w.spec.Domain }

// Spec returns the effective configuration.
func (w *Wrapper[T, D, S]) Spec() Spec { return w.spec }

func pick(ttl, def time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return def
}

func (w *Wrapper[T, D, S]) GetList(ctx context.Context, filters any) ([]T, bool) {
	return cache.GetAs[[]T](ctx, w.c, cachekey.List(w.spec.Domain, filters))
}

func (w *Wrapper[T, D, S]) SetList(ctx context.Context, filters any, items []T, ttl time.Duration) {
	if items == nil {
		items = []T{}
	}
	w.c.Set(ctx, cachekey.List(w.spec.Domain, filters), items, pick(ttl, w.spec.ListTTL))
}

func (w *Wrapper[T, D, S]) GetItem(ctx context.Context, id string) (T, bool) {
	return cache.GetAs[T](ctx, w.c, cachekey.Item(w.spec.Domain, id))
}

func (w *Wrapper[T, D, S]) SetItem(ctx context.Context, id string, item T, ttl time.Duration) {
	w.c.Set(ctx, cachekey.Item(w.spec.Domain, id), item, pick(ttl, w.spec.DefaultTTL))
}

func (w *Wrapper[T, D, S]) GetItemWithDetails(ctx context.Context, id string) (D, bool) {
	return cache.GetAs[D](ctx, w.c, cachekey.Details(w.spec.Domain, id))
}

func (w *Wrapper[T, D, S]) SetItemWithDetails(ctx context.Context, id string, item D, ttl time.Duration) {
	w.c.Set(ctx, cachekey.Details(w.spec.Domain, id), item, pick(ttl, w.spec.DefaultTTL))
}

func (w *Wrapper[T, D, S]) GetStats(ctx context.Context) (S, bool) {
	return cache.GetAs[S](ctx, w.c, cachekey.Stats(w.spec.Domain))
}

func (w *Wrapper[T, D, S]) SetStats(ctx context.Context, stats S, ttl time.Duration) {
	w.c.Set(ctx, cachekey.Stats(w.spec.Domain), stats, pick(ttl, w.spec.StatsTTL))
}

// GetIndexed reads a list reached through a secondary index.
func (w *Wrapper[T, D, S]) GetIndexed(ctx context.Context, index, value string, filters any) ([]T, bool) {
	return cache.GetAs[[]T](ctx, w.c, cachekey.Index(w.spec.Domain, index, value, filters))
}

func (w *Wrapper[T, D, S]) SetIndexed(ctx context.Context, index, value string, filters any, items []T, ttl time.Duration) {
	if items == nil {
		items = []T{}
	}
	w.c.Set(ctx, cachekey.Index(w.spec.Domain, index, value, filters), items, pick(ttl, w.spec.ListTTL))
}

// InvalidateItem drops the item and its details view.
func (w *Wrapper[T, D, S]) InvalidateItem(ctx context.Context, id string) {
	w.c.Delete(ctx, cachekey.Item(w.spec.Domain, id))
	w.c.Delete(ctx, cachekey.Details(w.spec.Domain, id))
}

// InvalidateList drops every filtered list of the domain.
func (w *Wrapper[T, D, S]) InvalidateList(ctx context.Context) int {
	return w.c.Invalidate(ctx, cache.InvalidateOptions{Pattern: cachekey.ListPattern(w.spec.Domain)})
}

func (w *Wrapper[T, D, S]) InvalidateStats(ctx context.Context) {
	w.c.Delete(ctx, cachekey.Stats(w.spec.Domain))
}

// InvalidateAllDetails drops the details view of every item, for changes to
// related rows shared by many items.
func (w *Wrapper[T, D, S]) InvalidateAllDetails(ctx context.Context) int {
	return w.c.Invalidate(ctx, cache.InvalidateOptions{Pattern: cachekey.ScopePattern(w.spec.Domain, cachekey.ScopeDetails)})
}

// InvalidateAll drops every key of the domain.
func (w *Wrapper[T, D, S]) InvalidateAll(ctx context.Context) int {
	return w.c.Invalidate(ctx, cache.InvalidateOptions{Pattern: cachekey.DomainPattern(w.spec.Domain)})
}

// InvalidateIndex drops every filter variant cached for one index value.
func (w *Wrapper[T, D, S]) InvalidateIndex(ctx context.Context, index, value string) int {
	return w.c.Invalidate(ctx, cache.InvalidateOptions{Pattern: cachekey.IndexPattern(w.spec.Domain, index, value)})
}

// InvalidateIndexAll drops every value of an index.
func (w *Wrapper[T, D, S]) InvalidateIndexAll(ctx context.Context, index string) int {
	return w.c.Invalidate(ctx, cache.InvalidateOptions{Pattern: cachekey.IndexAllPattern(w.spec.Domain, index)})
}

// InvalidateMutation is what every create, update or delete of one entity
// must call once the backend confirmed it: item, details, lists, stats and
// the listed index values. An empty id skips the item keys (creates).
func (w *Wrapper[T, D, S]) InvalidateMutation(ctx context.Context, id string, refs ...IndexRef) {
	if id != "" {
		w.InvalidateItem(ctx, id)
	}
	w.InvalidateList(ctx)
	w.InvalidateStats(ctx)
	for _, ref := range refs {
		if ref.Value == "" {
			continue
		}
		w.InvalidateIndex(ctx, ref.Index, ref.Value)
	}
}

// Scalar caches one derived value per id, such as an unread count:
// <domain>:<name>:<id>.
type Scalar[V any] struct {
	c      cache.Cache
	domain string
	name   string
	ttl    time.Duration
}

// NewScalar builds a scalar cache. A zero ttl means cache.Medium.
func NewScalar[V any](c cache.Cache, domain, name string, ttl time.Duration) *Scalar[V] {
	if ttl <= 0 {
		ttl = cache.Medium
	}
	return &Scalar[V]{c: c, domain: domain, name: name, ttl: ttl}
}

func (s *Scalar[V]) Get(ctx context.Context, id string) (V, bool) {
	return cache.GetAs[V](ctx, s.c, cachekey.Scalar(s.domain, s.name, id))
}

func (s *Scalar[V]) Set(ctx context.Context, id string, v V, ttl time.Duration) {
	s.c.Set(ctx, cachekey.Scalar(s.domain, s.name, id), v, pick(ttl, s.ttl))
}

func (s *Scalar[V]) Invalidate(ctx context.Context, id string) {
	s.c.Delete(ctx, cachekey.Scalar(s.domain, s.name, id))
}

// InvalidateAll drops the value for every id.
func (s *Scalar[V]) InvalidateAll(ctx context.Context) int {
	return s.c.Invalidate(ctx, cache.InvalidateOptions{Pattern: cachekey.ScopePattern(s.domain, s.name)})
}
