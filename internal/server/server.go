// Package server assembles the cache engine, the domain services and the
// HTTP surface into one runnable unit.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/onnwee/agrisync/backend/internal/api"
	"github.com/onnwee/agrisync/backend/internal/api/handlers"
	"github.com/onnwee/agrisync/backend/internal/backend"
	"github.com/onnwee/agrisync/backend/internal/cache"
	"github.com/onnwee/agrisync/backend/internal/config"
	"github.com/onnwee/agrisync/backend/internal/domaincache"
	"github.com/onnwee/agrisync/backend/internal/logger"
	"github.com/onnwee/agrisync/backend/internal/metrics"
	"github.com/onnwee/agrisync/backend/internal/middleware"
	"github.com/onnwee/agrisync/backend/internal/scheduler"
	"github.com/onnwee/agrisync/backend/internal/services"
	"github.com/onnwee/agrisync/backend/internal/store"
)

// Job names registered with the scheduler.
const (
	JobExpiredSweep    = "cache-expired-sweep"
	JobMetricsSnapshot = "cache-metrics-snapshot"
)

// Repositories are the backend tables the services read through the cache.
type Repositories struct {
	Auth          services.AuthRepository
	Producers     services.ProducerRepository
	Cooperatives  services.CooperativeRepository
	Notifications services.NotificationRepository
	Assignments   services.AssignmentRepository
	Seasons       services.SeasonRepository
	// Check reports backend reachability on /ready when set.
	Check handlers.Check
}

// BackendRepositories binds every repository to the hosted backend.
func BackendRepositories(c *backend.Client) Repositories {
	return Repositories{
		Auth:          backend.NewAuth(c),
		Producers:     backend.NewProducers(c),
		Cooperatives:  backend.NewCooperatives(c),
		Notifications: backend.NewNotifications(c),
		Assignments:   backend.NewAssignments(c),
		Seasons:       backend.NewSeasons(c),
		Check:         c.Check,
	}
}

// Server owns the long-running pieces: the engine, the event hub, the
// metrics collector, the scheduler and the rate limiter.
type Server struct {
	cfg       *config.Config
	store     store.Store
	Cache     *cache.Engine
	Caches    *domaincache.Caches
	Scheduler *scheduler.Service
	Handler   http.Handler

	hub       *handlers.Hub
	collector *metrics.Collector
	limiter   *middleware.RateLimiter

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New opens the persistent tier and the backend client selected by cfg and
// builds the server over them.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	client, err := backend.NewClient(backend.Options{
		URL:              cfg.SupabaseURL,
		Key:              cfg.SupabaseKey,
		FailureThreshold: cfg.StoreBreakerFailures,
		Timeout:          cfg.StoreBreakerTimeout,
	})
	if err != nil {
		closeStore(st)
		return nil, err
	}
	s, err := Build(ctx, cfg, st, BackendRepositories(client))
	if err != nil {
		closeStore(st)
		return nil, err
	}
	return s, nil
}

// Build wires the server over an already opened store. The engine is
// initialized before Build returns.
func Build(ctx context.Context, cfg *config.Config, st store.Store, repos Repositories) (*Server, error) {
	e := cache.New(st, cache.Config{
		MaxMemoryEntries: cfg.CacheMaxMemoryEntries,
		EnableMetrics:    cfg.CacheEnableMetrics,
		KeyPrefix:        cfg.CacheKeyPrefix,
		MetricsKey:       cfg.CacheMetricsKey,
	})
	e.Initialize(ctx)
	e.ExportPrometheus()

	caches := domaincache.NewCaches(e, cfg.CacheTTLOverrides)
	s := &Server{
		cfg:       cfg,
		store:     st,
		Cache:     e,
		Caches:    caches,
		Scheduler: scheduler.NewService(time.Second),
		hub:       handlers.NewHub(e),
		collector: metrics.NewCollector(e.Sample, cfg.CacheCollectInterval),
	}
	if cfg.EnableRateLimit {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst,
			cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst)
	}

	if err := s.registerJobs(); err != nil {
		s.stopLimiter()
		return nil, err
	}

	deps := api.Deps{
		Cache:       e,
		Hub:         s.hub,
		AdminToken:  cfg.AdminAPIToken,
		ReadyChecks: s.readyChecks(repos.Check),
		RateLimiter: s.limiter,
		CORSOrigins: cfg.CORSAllowedOrigins,
	}
	if repos.Auth != nil {
		deps.Auth = services.NewAuthService(repos.Auth, caches)
	}
	if repos.Producers != nil {
		deps.Producers = services.NewProducerService(repos.Producers, caches)
	}
	if repos.Cooperatives != nil {
		deps.Cooperatives = services.NewCooperativeService(repos.Cooperatives, caches)
	}
	if repos.Notifications != nil {
		deps.Notifications = services.NewNotificationService(repos.Notifications, caches)
	}
	if repos.Assignments != nil {
		deps.Assignments = services.NewAssignmentService(repos.Assignments, caches)
	}
	if repos.Seasons != nil {
		deps.Seasons = services.NewSeasonService(repos.Seasons, caches)
	}
	s.Handler = api.NewRouter(deps)
	return s, nil
}

func (s *Server) registerJobs() error {
	if err := s.Scheduler.Register(JobExpiredSweep, s.cfg.CacheSweepSchedule, func(ctx context.Context) error {
		if n := s.Cache.PurgeExpired(ctx); n > 0 {
			logger.InfoContext(ctx, "Purged expired cache entries", "removed", n)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("register %s: %w", JobExpiredSweep, err)
	}
	if !s.cfg.CacheEnableMetrics {
		return nil
	}
	if err := s.Scheduler.Register(JobMetricsSnapshot, s.cfg.CacheSnapshotSchedule, s.Cache.SaveMetrics); err != nil {
		return fmt.Errorf("register %s: %w", JobMetricsSnapshot, err)
	}
	return nil
}

func (s *Server) readyChecks(backendCheck handlers.Check) map[string]handlers.Check {
	checks := map[string]handlers.Check{}
	if backendCheck != nil {
		checks["backend"] = backendCheck
	}
	if p, ok := s.store.(store.Pinger); ok {
		checks["cache_store"] = p.Ping
	}
	return checks
}

// Start launches the background goroutines. They stop when ctx is
// cancelled or Close is called.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.Scheduler.Start(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.collector.Start(ctx)
	}()

	logger.Info("Cache server started",
		"store", s.cfg.CacheStore,
		"max_memory_entries", s.cfg.CacheMaxMemoryEntries,
		"jobs", len(s.Scheduler.Jobs()))
}

// Close stops the background work, saves the metrics snapshot and closes
// the store. It is safe to call more than once.
func (s *Server) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.Scheduler.Stop()
		s.collector.Stop()
		s.stopLimiter()
		s.wg.Wait()

		var errs []error
		if cerr := s.Cache.Close(ctx); cerr != nil {
			errs = append(errs, fmt.Errorf("save cache metrics: %w", cerr))
		}
		if cerr := closeStore(s.store); cerr != nil {
			errs = append(errs, fmt.Errorf("close cache store: %w", cerr))
		}
		err = errors.Join(errs...)
	})
	return err
}

func (s *Server) stopLimiter() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func closeStore(st store.Store) error {
	if c, ok := st.(store.Closer); ok {
		return c.Close()
	}
	return nil
}
