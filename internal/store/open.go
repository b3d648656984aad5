package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/onnwee/agrisync/backend/internal/circuitbreaker"
	"github.com/onnwee/agrisync/backend/internal/config"
	"github.com/onnwee/agrisync/backend/internal/logger"
)

// Open builds the persistent tier selected by cfg.CacheStore. Postgres and
// Redis stores are wrapped in a circuit breaker; the memory store is not.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.CacheStore))

	var (
		s   Store
		err error
	)
	switch kind {
	case "", "memory":
		logger.Info("Using in-process cache store")
		return NewMemory(), nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("CACHE_STORE=postgres requires DATABASE_URL")
		}
		s, err = OpenPostgres(ctx, cfg.DatabaseURL)
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("CACHE_STORE=redis requires REDIS_ADDR")
		}
		s, err = OpenRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown CACHE_STORE %q", cfg.CacheStore)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Using persistent cache store", "store", kind)
	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:             "cache_store",
		FailureThreshold: cfg.StoreBreakerFailures,
		SuccessThreshold: 1,
		Timeout:          cfg.StoreBreakerTimeout,
	})
	return NewGuarded(s, cb), nil
}
