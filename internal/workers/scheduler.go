// Package workers runs the background jobs: demand refresh, cache warming,
// competitor refresh, cache sweeping, metric rollover, and the loyalty expiry
// scan. Each job runs on its own ticker.
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
)

// Job is one schedulable unit of background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives the registered jobs. Jobs run concurrently with each
// other but a single job never overlaps itself.
type Scheduler struct {
	clk     clock.Clock
	metrics *metrics.Registry

	mu     sync.Mutex
	jobs   []Job
	paused bool
	wg     sync.WaitGroup
}

// NewScheduler builds an empty scheduler.
func NewScheduler(clk clock.Clock, reg *metrics.Registry) *Scheduler {
	return &Scheduler{clk: clk, metrics: reg}
}

// Add registers a job. Must be called before Start.
func (s *Scheduler) Add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Pause stops new job executions; running executions finish. Used by tests.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume re-enables job executions.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Start launches every job loop and blocks until the context ends and all
// running executions drain.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	for _, job := range jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			paused := s.paused
			s.mu.Unlock()
			if paused {
				continue
			}
			s.execute(ctx, job)
		}
	}
}

// RunOnce executes a registered job by name immediately. Used by the ops CLI
// and tests.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	var job *Job
	for i := range s.jobs {
		if s.jobs[i].Name == name {
			job = &s.jobs[i]
			break
		}
	}
	s.mu.Unlock()
	if job == nil {
		return errUnknownJob(name)
	}
	return s.execute(ctx, *job)
}

func errUnknownJob(name string) error { return fmt.Errorf("unknown job %q", name) }

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	start := s.clk.Now()
	err := job.Run(ctx)
	elapsed := s.clk.Now().Sub(start)

	s.metrics.WorkerDuration.WithLabelValues(job.Name).Observe(elapsed.Seconds())
	if err != nil {
		s.metrics.WorkerRuns.WithLabelValues(job.Name, "error").Inc()
		log.Error().Err(err).Str("job", job.Name).Dur("elapsed", elapsed).Msg("worker run failed")
		return err
	}
	s.metrics.WorkerRuns.WithLabelValues(job.Name, "ok").Inc()
	log.Debug().Str("job", job.Name).Dur("elapsed", elapsed).Msg("worker run complete")
	return nil
}
