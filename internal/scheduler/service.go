package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/onnwee/agrisync/backend/internal/errorreporting"
	"github.com/onnwee/agrisync/backend/internal/logger"
	"github.com/onnwee/agrisync/backend/internal/metrics"
)

// JobFunc is one maintenance task.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	schedule Schedule
	run      JobFunc
	nextRun  time.Time
	lastRun  time.Time
	lastErr  error
	running  bool
}

// JobStatus describes a registered job.
type JobStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run"`
	LastRun  time.Time `json:"last_run,omitempty"`
	LastErr  string    `json:"last_error,omitempty"`
}

// Service runs registered jobs on their schedules. Each job runs at most
// once at a time; a run that overlaps its next slot is skipped.
type Service struct {
	tick    time.Duration
	timeout time.Duration
	now     func() time.Time

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// NewService creates a scheduler that checks for due jobs every tick.
func NewService(tick time.Duration) *Service {
	if tick <= 0 {
		tick = time.Second
	}
	return &Service{
		tick:    tick,
		timeout: 5 * time.Minute,
		now:     time.Now,
		jobs:    make(map[string]*job),
		stop:    make(chan struct{}),
	}
}

// Register adds a job. The first run is one schedule step from now.
func (s *Service) Register(name, expr string, fn JobFunc) error {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %s already registered", name)
	}
	s.jobs[name] = &job{name: name, schedule: sched, run: fn, nextRun: sched.Next(s.now())}
	return nil
}

// Start runs the scheduler loop until ctx is cancelled or Stop is called,
// then waits for in-flight jobs.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Starting scheduler service", "jobs", len(s.Jobs()))
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	defer s.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduler stopped by context")
			return
		case <-s.stop:
			logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// Stop gracefully stops the scheduler
func (s *Service) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// runDue starts every job whose next run has passed.
func (s *Service) runDue(ctx context.Context) {
	now := s.now()
	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if now.Before(j.nextRun) {
			continue
		}
		j.nextRun = j.schedule.Next(now)
		if j.running {
			metrics.SchedulerJobRuns.WithLabelValues(j.name, "skipped").Inc()
			logger.Warn("Skipping scheduled job, previous run still active", "job", j.name)
			continue
		}
		j.running = true
		due = append(due, j)
	}
	s.mu.Unlock()

	for _, j := range due {
		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			s.execute(ctx, j)
		}(j)
	}
}

// RunNow executes the named job synchronously, outside its schedule.
func (s *Service) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	if ok && j.running {
		s.mu.Unlock()
		return fmt.Errorf("job %s is already running", name)
	}
	if ok {
		j.running = true
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	return s.execute(ctx, j)
}

func (s *Service) execute(ctx context.Context, j *job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
		status := "success"
		if err != nil {
			status = "error"
			if errors.Is(err, context.Canceled) {
				status = "cancelled"
			} else {
				errorreporting.CaptureErrorWithContext(err,
					map[string]string{"component": "scheduler", "job": j.name}, nil)
			}
			logger.ErrorContext(ctx, "Scheduled job failed", "job", j.name, "error", err)
		} else {
			logger.DebugContext(ctx, "Scheduled job finished", "job", j.name, "duration", time.Since(start))
		}
		metrics.SchedulerJobRuns.WithLabelValues(j.name, status).Inc()

		s.mu.Lock()
		j.running = false
		j.lastRun = start
		j.lastErr = err
		s.mu.Unlock()
	}()

	return j.run(ctx)
}

// Jobs lists registered jobs by name.
func (s *Service) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := JobStatus{Name: j.name, Schedule: j.schedule.String(), NextRun: j.nextRun, LastRun: j.lastRun}
		if j.lastErr != nil {
			st.LastErr = j.lastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}
