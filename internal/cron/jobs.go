package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/tgrelay/internal/history"
)

// StatsSource reports history statistics. *history.Store satisfies it.
type StatsSource interface {
	Stats() history.Stats
}

// HistoryStatsJob logs the number of stored conversations and turns.
// History is never evicted, so this is how operators watch its growth.
type HistoryStatsJob struct {
	Source       StatsSource
	Logger       *slog.Logger
	ScheduleExpr string // empty = "*/15 * * * *"
}

var _ Job = (*HistoryStatsJob)(nil)

// Name implements Job.
func (j *HistoryStatsJob) Name() string { return "history_stats" }

// Schedule implements Job.
func (j *HistoryStatsJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run logs the current statistics.
func (j *HistoryStatsJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: history stats cancelled: %w", ctx.Err())
	}
	stats := j.Source.Stats()
	j.Logger.Info("cron: history stats",
		"conversations", stats.Conversations,
		"turns", stats.Turns,
	)
	return nil
}

// Prober runs an active provider health check.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProviderProbeJob checks that the completion API is reachable. A failed
// probe is returned as an error and logged by the Scheduler; it never
// affects message handling.
type ProviderProbeJob struct {
	Prober       Prober
	Logger       *slog.Logger
	ScheduleExpr string // empty = "*/5 * * * *"
}

var _ Job = (*ProviderProbeJob)(nil)

// Name implements Job.
func (j *ProviderProbeJob) Name() string { return "provider_probe" }

// Schedule implements Job.
func (j *ProviderProbeJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run probes the provider.
func (j *ProviderProbeJob) Run(ctx context.Context) error {
	if err := j.Prober.Probe(ctx); err != nil {
		return fmt.Errorf("cron: provider probe: %w", err)
	}
	j.Logger.Debug("cron: provider reachable")
	return nil
}

// Pruner deletes records older than a cutoff and reports how many went.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// TranscriptPruneJob enforces the debug transcript retention window.
type TranscriptPruneJob struct {
	Pruner       Pruner
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = "@hourly"

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

var _ Job = (*TranscriptPruneJob)(nil)

// Name implements Job.
func (j *TranscriptPruneJob) Name() string { return "transcript_prune" }

// Schedule implements Job.
func (j *TranscriptPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "@hourly"
}

// Run deletes transcript rows older than MaxAge.
func (j *TranscriptPruneJob) Run(ctx context.Context) error {
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	n, err := j.Pruner.Prune(ctx, now().Add(-j.MaxAge))
	if err != nil {
		return fmt.Errorf("cron: transcript prune: %w", err)
	}
	if n > 0 {
		j.Logger.Info("cron: transcript pruned", "deleted", n, "max_age", j.MaxAge)
	}
	return nil
}
