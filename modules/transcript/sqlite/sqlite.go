// Package sqlite implements the transcript.sqlite module: a persistent
// record of debug exchanges backed by modernc.org/sqlite (pure Go, no
// CGO). It only receives exchanges when relay debug mode is on.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/cron"
	"github.com/flemzord/tgrelay/internal/relay"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// ServiceName is the AppContext service holding the *Store.
const ServiceName = "transcript.store"

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ relay.DebugSink   = (*Module)(nil)
	_ cron.Pruner       = (*Store)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module stores debug exchanges in a SQLite database.
type Module struct {
	config Config
	store  *Store
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "transcript.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("transcript.sqlite: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. It opens the database and, when
// max_age is set, registers the retention job with the scheduler.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}
	if dir := filepath.Dir(m.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("transcript.sqlite: create directory %s: %w", dir, err)
		}
	}

	store, err := Open(context.TODO(), m.config.Path, m.config)
	if err != nil {
		return err
	}
	m.store = store
	ctx.RegisterService(ServiceName, store)

	if m.config.MaxAge > 0 {
		if err := m.registerPruneJob(ctx); err != nil {
			_ = store.Close()
			return err
		}
	}

	m.logger.Info("sqlite transcript module provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
		"max_age", m.config.MaxAge,
	)
	return nil
}

func (m *Module) registerPruneJob(ctx *core.AppContext) error {
	svc, ok := ctx.GetService(cron.ServiceName)
	if !ok {
		m.logger.Warn("no scheduler available, transcript retention disabled")
		return nil
	}
	sched, ok := svc.(*cron.Scheduler)
	if !ok {
		return fmt.Errorf("transcript.sqlite: %s is not a *cron.Scheduler", cron.ServiceName)
	}
	return sched.RegisterJob(&cron.TranscriptPruneJob{
		Pruner:       m.store,
		MaxAge:       m.config.MaxAge,
		Logger:       m.logger,
		ScheduleExpr: m.config.PruneSchedule,
	})
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if m.store == nil {
		return errors.New("transcript.sqlite: store not provisioned")
	}
	if err := m.store.Ping(context.TODO()); err != nil {
		return fmt.Errorf("transcript.sqlite: ping failed: %w", err)
	}
	return nil
}

// Record implements relay.DebugSink.
func (m *Module) Record(ctx context.Context, ex relay.Exchange) error {
	return m.store.Record(ctx, ex)
}

// Store returns the underlying store.
func (m *Module) Store() *Store {
	return m.store
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	m.logger.Info("sqlite transcript module stopping")
	return m.store.Close()
}
