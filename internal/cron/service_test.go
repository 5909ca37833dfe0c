package cron

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zawlinn/boostline-backend/pkg/logger"
)

type stubJob struct {
	name     string
	interval time.Duration
	err      error
	runs     atomic.Int64
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Interval() time.Duration   { return s.interval }
func (s *stubJob) Run(context.Context) error { s.runs.Add(1); return s.err }

type fakeLock struct {
	held    bool
	denied  bool
	acquire atomic.Int64
	release atomic.Int64
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquire.Add(1)
	if f.denied {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.release.Add(1)
	f.held = false
	return nil
}

func cronTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(jobB)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != Job(jobA) || jobs[1] != Job(jobB) {
		t.Fatalf("jobs returned out of order")
	}
	// ensure caller cannot mutate internal slice
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestServiceRunsEachJobIndependently(t *testing.T) {
	fast := &stubJob{name: "fast", interval: 5 * time.Millisecond}
	failing := &stubJob{name: "failing", interval: 5 * time.Millisecond, err: errors.New("boom")}
	slow := &stubJob{name: "slow", interval: time.Hour}

	service, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(fast, failing, slow),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = service.Run(ctx)

	if fast.runs.Load() < 2 {
		t.Fatalf("fast job should run repeatedly, got %d", fast.runs.Load())
	}
	// A failing job keeps its own cadence and never stops the others.
	if failing.runs.Load() < 2 {
		t.Fatalf("failing job should keep running, got %d", failing.runs.Load())
	}
	// Slow jobs run once at startup and then wait for their interval.
	if slow.runs.Load() != 1 {
		t.Fatalf("slow job should run exactly once, got %d", slow.runs.Load())
	}
}

func TestServiceSkipsCycleWhenLockDenied(t *testing.T) {
	job := &stubJob{name: "locked", interval: time.Hour}
	lock := &fakeLock{denied: true}

	service, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(job),
		Locks: func(name string, ttl time.Duration) (Lock, error) {
			return lock, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = service.Run(ctx)

	if job.runs.Load() != 0 {
		t.Fatalf("denied lock must skip the run, got %d runs", job.runs.Load())
	}
	if lock.acquire.Load() == 0 {
		t.Fatal("lock was never consulted")
	}
}

func TestServiceReleasesLockAfterRun(t *testing.T) {
	job := &stubJob{name: "held", interval: time.Hour}
	lock := &fakeLock{}

	service, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(job),
		Locks: func(name string, ttl time.Duration) (Lock, error) {
			return lock, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = service.Run(ctx)

	if job.runs.Load() != 1 {
		t.Fatalf("expected 1 run, got %d", job.runs.Load())
	}
	if lock.release.Load() != lock.acquire.Load() {
		t.Fatalf("every acquire needs a release: %d vs %d", lock.acquire.Load(), lock.release.Load())
	}
	if lock.held {
		t.Fatal("lock still held after shutdown")
	}
}
