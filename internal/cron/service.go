package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zawlinn/boostline-backend/pkg/logger"
	"github.com/zawlinn/boostline-backend/pkg/metrics"
)

const defaultJobInterval = time.Minute

// LockFactory builds the per-job lock. Returning a nil Lock disables
// locking for that job.
type LockFactory func(job string, ttl time.Duration) (Lock, error)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    LockFactory
	Metrics  *metrics.CronJobMetrics
}

// Service runs every registered job on its own fixed interval. Jobs are
// independent: one job's cadence, failure, or runtime never affects another.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    LockFactory
	metrics  *metrics.CronJobMetrics
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locks:    params.Locks,
		metrics:  params.Metrics,
	}, nil
}

// Run starts one worker loop per job and blocks until the context is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var wg sync.WaitGroup
	for _, job := range s.registry.Jobs() {
		lock, err := s.lockFor(job)
		if err != nil {
			return fmt.Errorf("building lock for job %s: %w", job.Name(), err)
		}
		wg.Add(1)
		go func(job Job, lock Lock) {
			defer wg.Done()
			s.runLoop(ctx, job, lock)
		}(job, lock)
	}

	wg.Wait()
	s.logg.Info(ctx, "cron service stopped")
	return ctx.Err()
}

func (s *Service) lockFor(job Job) (Lock, error) {
	if s.locks == nil {
		return nil, nil
	}
	interval := job.Interval()
	if interval <= 0 {
		interval = defaultJobInterval
	}
	// TTL beyond the interval so a crashed holder expires instead of
	// wedging the job forever.
	return s.locks(job.Name(), 2*interval)
}

func (s *Service) runLoop(ctx context.Context, job Job, lock Lock) {
	interval := job.Interval()
	if interval <= 0 {
		interval = defaultJobInterval
	}

	jobCtx := s.logg.WithJob(ctx, job.Name())
	s.runOnce(jobCtx, job, lock)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(jobCtx, job, lock)
		}
	}
}

func (s *Service) runOnce(ctx context.Context, job Job, lock Lock) {
	if lock != nil {
		locked, err := lock.Acquire(ctx)
		if err != nil {
			s.logg.Error(ctx, "lock acquire failed, skipping cycle", err)
			return
		}
		if !locked {
			s.logg.Debug(ctx, "another instance holds the lock, skipping cycle")
			return
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				s.logg.Error(ctx, "failed to release job lock", err)
			}
		}()
	}

	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)

	ctx = s.logg.WithField(ctx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		s.recordFailure(job.Name())
		return
	}
	s.logg.Debug(ctx, "job completed")
	s.recordSuccess(job.Name())
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
