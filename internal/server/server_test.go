package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/agrisync/backend/internal/cache"
	"github.com/onnwee/agrisync/backend/internal/config"
	"github.com/onnwee/agrisync/backend/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		AdminAPIToken:         "admin",
		CacheStore:            "memory",
		CacheMaxMemoryEntries: 10,
		CacheEnableMetrics:    true,
		CacheSweepSchedule:    "@every 10m",
		CacheSnapshotSchedule: "@every 1m",
		CacheCollectInterval:  time.Hour,
	}
}

func TestBuild_RegistersJobs(t *testing.T) {
	s, err := Build(context.Background(), testConfig(), store.NewMemory(), Repositories{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer s.Close(context.Background())

	jobs := s.Scheduler.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	names := map[string]bool{}
	for _, j := range jobs {
		names[j.Name] = true
	}
	if !names[JobExpiredSweep] || !names[JobMetricsSnapshot] {
		t.Errorf("unexpected jobs: %v", names)
	}
}

func TestBuild_SkipsSnapshotWithoutMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.CacheEnableMetrics = false
	s, err := Build(context.Background(), cfg, store.NewMemory(), Repositories{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer s.Close(context.Background())

	if got := len(s.Scheduler.Jobs()); got != 1 {
		t.Errorf("expected only the sweep job, got %d", got)
	}
}

func TestBuild_RejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.CacheSweepSchedule = "*/5 * * * *"
	if _, err := Build(context.Background(), cfg, store.NewMemory(), Repositories{}); err == nil {
		t.Fatal("expected an error for an unsupported schedule")
	}
}

func TestSweepJobPurgesExpired(t *testing.T) {
	ctx := context.Background()
	s, err := Build(ctx, testConfig(), store.NewMemory(), Repositories{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer s.Close(ctx)

	s.Cache.Set(ctx, "producers:item:p1", map[string]string{"id": "p1"}, time.Millisecond)
	s.Cache.Set(ctx, "producers:item:p2", map[string]string{"id": "p2"}, cache.Long)
	time.Sleep(5 * time.Millisecond)

	if err := s.Scheduler.RunNow(ctx, JobExpiredSweep); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if got := s.Cache.Stats().MemoryKeys; got != 1 {
		t.Errorf("memory entries after sweep = %d, want 1", got)
	}
}

func TestHandlerServesHealthAndAdmin(t *testing.T) {
	s, err := Build(context.Background(), testConfig(), store.NewMemory(), Repositories{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer s.Close(context.Background())

	tests := []struct {
		path  string
		token string
		want  int
	}{
		{"/health", "", http.StatusOK},
		{"/ready", "", http.StatusOK},
		{"/api/admin/cache/stats", "", http.StatusUnauthorized},
		{"/api/admin/cache/stats", "admin", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			s.Handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rr.Code, tt.want)
			}
		})
	}
}

func TestStartAndClose(t *testing.T) {
	s, err := Build(context.Background(), testConfig(), store.NewMemory(), Repositories{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s.Start(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Close(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	if err := s.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
