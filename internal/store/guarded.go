package store

import (
	"context"
	"errors"

	"github.com/onnwee/agrisync/backend/internal/circuitbreaker"
)

// Guarded wraps a Store with a circuit breaker. While the breaker is open
// every call fails fast with ErrUnavailable, so an outage degrades the cache
// to memory-only instead of stalling each request on the store.
type Guarded struct {
	next Store
	cb   *circuitbreaker.CircuitBreaker
}

// NewGuarded wraps next with cb.
func NewGuarded(next Store, cb *circuitbreaker.CircuitBreaker) *Guarded {
	return &Guarded{next: next, cb: cb}
}

func (g *Guarded) call(fn func() error) error {
	err := g.cb.Call(fn)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return ErrUnavailable
	}
	return err
}

func (g *Guarded) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		val []byte
		ok  bool
	)
	err := g.call(func() error {
		var err error
		val, ok, err = g.next.Get(ctx, key)
		return err
	})
	return val, ok, err
}

func (g *Guarded) Set(ctx context.Context, key string, value []byte) error {
	return g.call(func() error { return g.next.Set(ctx, key, value) })
}

func (g *Guarded) Delete(ctx context.Context, key string) error {
	return g.call(func() error { return g.next.Delete(ctx, key) })
}

func (g *Guarded) DeleteMany(ctx context.Context, keys []string) error {
	return g.call(func() error { return g.next.DeleteMany(ctx, keys) })
}

func (g *Guarded) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := g.call(func() error {
		var err error
		keys, err = g.next.Keys(ctx)
		return err
	})
	return keys, err
}

// Ping reaches the wrapped store directly so readiness reflects the store
// rather than the breaker. Stores without a ping are always reachable.
func (g *Guarded) Ping(ctx context.Context) error {
	if p, ok := g.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the wrapped store when it holds connections.
func (g *Guarded) Close() error {
	if c, ok := g.next.(Closer); ok {
		return c.Close()
	}
	return nil
}
