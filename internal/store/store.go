// Package store holds the persistent tier of the cache: a durable key-value
// byte store addressed by string keys. Implementations must be safe for
// concurrent use.
package store

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when a store refuses work, e.g. while its
// circuit breaker is open.
var ErrUnavailable = errors.New("store: unavailable")

// Store is the persistent tier contract consumed by the cache engine.
type Store interface {
	// Get returns the stored bytes for key. A missing key is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes every key in keys.
	DeleteMany(ctx context.Context, keys []string) error

	// Keys lists every key in the store, including keys that do not belong
	// to the cache namespace.
	Keys(ctx context.Context) ([]string, error)
}

// Closer is implemented by stores that hold connections.
type Closer interface {
	Close() error
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
