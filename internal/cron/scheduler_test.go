package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// simpleJob is a minimal Job for scheduler tests.
type simpleJob struct {
	name     string
	schedule string
	runFunc  func(ctx context.Context) error
	mu       sync.Mutex
	calls    int
}

func (j *simpleJob) Name() string     { return j.name }
func (j *simpleJob) Schedule() string { return j.schedule }
func (j *simpleJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	if j.runFunc != nil {
		return j.runFunc(ctx)
	}
	return nil
}

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.New(slog.DiscardHandler))

	err := s.RegisterJob(&simpleJob{name: "test", schedule: "* * * * *"})
	if err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}

	err = s.RegisterJob(&simpleJob{name: "test", schedule: "* * * * *"})
	if err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestScheduler_Start_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.New(slog.DiscardHandler))
	_ = s.RegisterJob(&simpleJob{name: "bad", schedule: "invalid"})

	err := s.Start()
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.New(slog.DiscardHandler))
	_ = s.RegisterJob(&simpleJob{name: "noop", schedule: "* * * * *"})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_NilLogger(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil) // should not panic
	if s.logger == nil {
		t.Fatal("logger should default to slog.Default()")
	}
}

func TestScheduler_TickSkipsOverlappingRun(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	job := &simpleJob{
		name:     "slow",
		schedule: "@every 1h",
		runFunc: func(_ context.Context) error {
			close(started)
			<-release
			return nil
		},
	}

	s := NewScheduler(slog.New(slog.DiscardHandler))
	if err := s.RegisterJob(job); err != nil {
		t.Fatal(err)
	}

	tick := s.tick(context.Background(), job)
	done := make(chan struct{})
	go func() {
		tick()
		close(done)
	}()
	<-started

	tick() // returns immediately: previous run still holds the lock
	close(release)
	<-done

	job.mu.Lock()
	defer job.mu.Unlock()
	if job.calls != 1 {
		t.Errorf("calls = %d, want 1", job.calls)
	}
}

func TestScheduler_TickRecoversPanic(t *testing.T) {
	t.Parallel()

	job := &simpleJob{
		name:     "boom",
		schedule: "@every 1h",
		runFunc:  func(context.Context) error { panic("boom") },
	}
	s := NewScheduler(slog.New(slog.DiscardHandler))
	_ = s.RegisterJob(job)

	tick := s.tick(context.Background(), job)
	tick()
	tick() // lock was released despite the panic

	job.mu.Lock()
	defer job.mu.Unlock()
	if job.calls != 2 {
		t.Errorf("calls = %d, want 2", job.calls)
	}
}

func TestScheduler_Jobs(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	_ = s.RegisterJob(&simpleJob{name: "a", schedule: "* * * * *"})
	_ = s.RegisterJob(&simpleJob{name: "b", schedule: "@hourly"})

	got := s.Jobs()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Jobs() = %v, want [a b]", got)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestScheduler_JobError(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.New(slog.DiscardHandler))
	_ = s.RegisterJob(&simpleJob{
		name:     "failing",
		schedule: "* * * * *",
		runFunc: func(_ context.Context) error {
			return errors.New("job failed")
		},
	})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewScheduler(slog.New(slog.DiscardHandler))
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
