package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(clock *fakeClock) *Service {
	s := NewService(time.Hour)
	s.now = clock.Now
	return s
}

func TestRegister(t *testing.T) {
	s := NewService(0)
	noop := func(context.Context) error { return nil }
	if err := s.Register("cache-expired-sweep", "@every 10m", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register("cache-expired-sweep", "@every 10m", noop); err == nil {
		t.Error("duplicate registration should fail")
	}
	if err := s.Register("broken", "0 * * * *", noop); err == nil {
		t.Error("unsupported schedule should fail")
	}
	jobs := s.Jobs()
	if len(jobs) != 1 || jobs[0].Name != "cache-expired-sweep" || jobs[0].Schedule != "@every 10m" {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestRunDue(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)}
	s := newTestService(clock)
	var sweeps, snapshots int32
	_ = s.Register("sweep", "@every 10m", func(context.Context) error { atomic.AddInt32(&sweeps, 1); return nil })
	_ = s.Register("snapshot", "@every 1m", func(context.Context) error { atomic.AddInt32(&snapshots, 1); return nil })

	ctx := context.Background()
	s.runDue(ctx)
	s.wg.Wait()
	if sweeps != 0 || snapshots != 0 {
		t.Fatalf("nothing is due yet: sweeps=%d snapshots=%d", sweeps, snapshots)
	}

	clock.Advance(time.Minute)
	s.runDue(ctx)
	s.wg.Wait()
	clock.Advance(9 * time.Minute)
	s.runDue(ctx)
	s.wg.Wait()

	if sweeps != 1 || snapshots != 2 {
		t.Errorf("sweeps=%d snapshots=%d, want 1 and 2", sweeps, snapshots)
	}
}

func TestOverlappingRunIsSkipped(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := newTestService(clock)
	release := make(chan struct{})
	var runs int32
	_ = s.Register("slow", "@every 1s", func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	})

	clock.Advance(time.Second)
	s.runDue(context.Background())
	clock.Advance(time.Second)
	s.runDue(context.Background())
	close(release)
	s.wg.Wait()

	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestRunNow(t *testing.T) {
	s := NewService(0)
	boom := errors.New("store unreachable")
	_ = s.Register("snapshot", "@every 1m", func(context.Context) error { return boom })

	if err := s.RunNow(context.Background(), "snapshot"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if err := s.RunNow(context.Background(), "missing"); err == nil {
		t.Error("unknown job should fail")
	}
	if st := s.Jobs()[0]; st.LastErr != boom.Error() || st.LastRun.IsZero() {
		t.Errorf("status = %+v", st)
	}
}

func TestRunNowRecoversPanics(t *testing.T) {
	s := NewService(0)
	_ = s.Register("bad", "@hourly", func(context.Context) error { panic("nil store") })
	if err := s.RunNow(context.Background(), "bad"); err == nil {
		t.Fatal("expected panic to surface as an error")
	}
}

func TestStartStops(t *testing.T) {
	s := NewService(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	s.Stop()
	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
	cancel()
}
