package cron

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/flemzord/tgrelay/internal/history"
)

type fixedStats history.Stats

func (f fixedStats) Stats() history.Stats { return history.Stats(f) }

type proberFunc func(ctx context.Context) error

func (f proberFunc) Probe(ctx context.Context) error { return f(ctx) }

func TestHistoryStatsJob(t *testing.T) {
	t.Parallel()

	j := &HistoryStatsJob{
		Source: fixedStats{Conversations: 2, Turns: 8},
		Logger: slog.New(slog.DiscardHandler),
	}
	if j.Name() != "history_stats" {
		t.Errorf("Name() = %q", j.Name())
	}
	if j.Schedule() != "*/15 * * * *" {
		t.Errorf("Schedule() = %q, want default", j.Schedule())
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestHistoryStatsJob_WithStore(t *testing.T) {
	t.Parallel()

	store := history.NewStore()
	store.Publish(1, "u", "a")

	j := &HistoryStatsJob{Source: store, Logger: slog.New(slog.DiscardHandler), ScheduleExpr: "@hourly"}
	if j.Schedule() != "@hourly" {
		t.Errorf("Schedule() = %q, want override", j.Schedule())
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestHistoryStatsJob_CancelledContext(t *testing.T) {
	t.Parallel()

	j := &HistoryStatsJob{Source: fixedStats{}, Logger: slog.New(slog.DiscardHandler)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestProviderProbeJob(t *testing.T) {
	t.Parallel()

	probeErr := errors.New("401")
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "reachable"},
		{name: "unreachable", err: probeErr, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			j := &ProviderProbeJob{
				Prober: proberFunc(func(context.Context) error {
					calls++
					return tt.err
				}),
				Logger: slog.New(slog.DiscardHandler),
			}

			err := j.Run(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, probeErr) {
				t.Errorf("Run() error = %v, want wrapping %v", err, probeErr)
			}
			if calls != 1 {
				t.Errorf("probe calls = %d, want 1", calls)
			}
		})
	}
}

type prunerFunc func(ctx context.Context, before time.Time) (int64, error)

func (f prunerFunc) Prune(ctx context.Context, before time.Time) (int64, error) { return f(ctx, before) }

func TestTranscriptPruneJob(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var cutoff time.Time
	j := &TranscriptPruneJob{
		Pruner: prunerFunc(func(_ context.Context, before time.Time) (int64, error) {
			cutoff = before
			return 3, nil
		}),
		MaxAge: 24 * time.Hour,
		Logger: slog.New(slog.DiscardHandler),
		now:    func() time.Time { return now },
	}

	if j.Name() != "transcript_prune" || j.Schedule() != "@hourly" {
		t.Errorf("Name/Schedule = %q/%q", j.Name(), j.Schedule())
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := now.Add(-24 * time.Hour); !cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", cutoff, want)
	}
}

func TestTranscriptPruneJob_Error(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("disk I/O error")
	j := &TranscriptPruneJob{
		Pruner: prunerFunc(func(context.Context, time.Time) (int64, error) { return 0, wantErr }),
		MaxAge: time.Hour,
		Logger: slog.New(slog.DiscardHandler),
	}
	if err := j.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Run() error = %v, want %v", err, wantErr)
	}
}
