// Package services are the cache's consumers: each read goes through its
// domain cache and falls back to the backend on a miss, and each mutation
// invalidates the affected keys once the backend confirmed it.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/onnwee/agrisync/backend/internal/models"
	"github.com/onnwee/agrisync/backend/internal/tracing"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = models.ErrNotFound

var (
	// ErrInvalid is returned for requests that fail validation.
	ErrInvalid = errors.New("invalid request")
	// ErrUnauthenticated is returned when no usable access token was given.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// readThrough serves key from the cache, or fetches and caches it. Concurrent
// misses for one key share a single fetch.
func readThrough[V any](
	ctx context.Context,
	group *singleflight.Group,
	op, key string,
	get func(context.Context) (V, bool),
	fetch func(context.Context) (V, error),
	set func(context.Context, V),
) (V, error) {
	ctx, span := tracing.StartSpan(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("cache.key", key))

	if v, ok := get(ctx); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return v, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	res, err, shared := group.Do(key, func() (interface{}, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		set(ctx, v)
		return v, nil
	})
	span.SetAttributes(attribute.Bool("fetch.shared", shared))
	if err != nil {
		tracing.RecordError(span, err)
		var zero V
		return zero, err
	}
	return res.(V), nil
}
