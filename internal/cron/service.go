// Package cron runs periodic maintenance for the booking backend. Only one
// worker instance does work per cycle; the rest skip while the lock is held.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/metrics"
)

const defaultInterval = 24 * time.Hour

// Job is one unit of maintenance work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Service runs its jobs in registration order on a fixed cadence.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	jobs := make([]Job, 0, len(params.Jobs))
	for _, job := range params.Jobs {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		jobs:     jobs,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Jobs returns a copy of the registered jobs.
func (s *Service) Jobs() []Job {
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Run executes a cycle immediately and then once per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.cycle(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// RunOnce executes a single cycle and reports the jobs that failed.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.runCycle(ctx)
}

func (s *Service) cycle(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "maintenance cycle failed", err)
	}
}

func (s *Service) runCycle(ctx context.Context) (err error) {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire maintenance lock: %w", err)
	}
	if !acquired {
		s.logg.Info(ctx, "maintenance lock held elsewhere; skipping cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "release maintenance lock", relErr)
		}
	}()

	var failed []error
	for _, job := range s.jobs {
		if jobErr := s.runJob(ctx, job); jobErr != nil {
			failed = append(failed, fmt.Errorf("%s: %w", job.Name(), jobErr))
		}
	}
	return errors.Join(failed...)
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(started)
	s.metrics.ObserveRun(job.Name(), elapsed, err != nil)

	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "maintenance job failed", err)
		return err
	}
	s.logg.Info(ctx, "maintenance job completed")
	return nil
}
