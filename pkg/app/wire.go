package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/tgrelay/internal/channel"
	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/cron"
	"github.com/flemzord/tgrelay/internal/gateway"
	"github.com/flemzord/tgrelay/internal/history"
	"github.com/flemzord/tgrelay/internal/provider"
	"github.com/flemzord/tgrelay/internal/relay"
	"github.com/flemzord/tgrelay/internal/router"
	"github.com/flemzord/tgrelay/pkg/message"
)

// routerModule wraps a *router.Router to satisfy core.Module, core.Starter,
// and core.Stopper, so the router participates in the App lifecycle.
type routerModule struct {
	router *router.Router
	ctx    context.Context
}

func (m *routerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "router"}
}

func (m *routerModule) Start() error {
	m.router.Start(m.ctx)
	return nil
}

func (m *routerModule) Stop(ctx context.Context) error {
	m.router.Stop(ctx)
	return nil
}

// schedulerModule runs the cron scheduler inside the App lifecycle. It is
// appended last so every job is registered before Start.
type schedulerModule struct {
	scheduler *cron.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

func (m *schedulerModule) Start() error {
	return m.scheduler.Start()
}

func (m *schedulerModule) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}

// wireRelay builds the orchestrator and router, connects them to every
// loaded channel, registers the services the gateway reads, and appends
// the router and scheduler to the app lifecycle. Must be called after
// LoadModules and before Start.
func wireRelay(
	app *core.App,
	appCtx *core.AppContext,
	cfg *config.Config,
	reg prometheus.Registerer,
	scheduler *cron.Scheduler,
) error {
	logger := appCtx.Logger

	svc, ok := appCtx.GetService(provider.ServiceName)
	if !ok {
		return errors.New("app: no provider module loaded")
	}
	p, ok := svc.(provider.Provider)
	if !ok {
		return fmt.Errorf("app: service %q is %T, not a provider", provider.ServiceName, svc)
	}
	completer := provider.NewCompleter(p, logger.With("component", "completer"), provider.HealthConfig{})

	// Discover channels and debug sinks from loaded modules.
	dispatcher := channel.NewDispatcher()
	var channels []channel.Channel
	var sinks []relay.DebugSink
	for _, mod := range app.Modules() {
		id := string(mod.ModuleInfo().ID)
		if ch, ok := mod.(channel.Channel); ok {
			// Register under the full module ID (e.g. "channel.telegram")
			// because that is what the channel sets as msg.Channel.
			if err := dispatcher.Register(id, ch); err != nil {
				return fmt.Errorf("registering channel %s: %w", id, err)
			}
			channels = append(channels, ch)
			logger.Info("relay: registered channel", "channel", id)
		}
		if sink, ok := mod.(relay.DebugSink); ok {
			sinks = append(sinks, sink)
			logger.Info("relay: registered debug sink", "module", id)
		}
	}
	if len(channels) == 0 {
		return errors.New("app: at least one channel module is required")
	}

	store := history.NewStore()
	orch := relay.NewOrchestrator(store, completer, relay.Config{
		SystemPrompt: cfg.Relay.SystemPrompt,
		ContextLimit: cfg.Relay.ContextLimit,
		Model:        cfg.Relay.Model,
		Debug:        cfg.Relay.DebugEnabled(),
		Logger:       logger.With("component", "relay"),
		Metrics:      relay.NewMetrics(reg, store),
		Sinks:        sinks,
	})

	r, err := router.NewRouter(router.Config{
		WorkerCount: cfg.Router.Workers,
		InboxSize:   cfg.Router.InboxSize,
		Serialize:   cfg.Router.SerializeConversations,
		Logger:      logger.With("component", "router"),
		Handler: router.HandlerFunc(func(ctx context.Context, msg message.InboundMessage) {
			orch.Handle(ctx, msg, dispatcher)
		}),
	})
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}

	for _, ch := range channels {
		ch.SetInbox(r.Submit)
	}

	appCtx.RegisterService(gateway.ServiceHistory, store)
	appCtx.RegisterService(gateway.ServiceCompleter, completer)
	appCtx.RegisterService(gateway.ServiceRouter, r)
	appCtx.RegisterService(gateway.ServiceChannels, dispatcher)

	if err := registerJobs(scheduler, cfg.Cron, store, completer, logger); err != nil {
		return err
	}

	app.AppendModule("router", &routerModule{
		router: r,
		ctx:    context.Background(),
	})
	app.AppendModule("cron", &schedulerModule{scheduler: scheduler})

	model := cfg.Relay.Model
	if model == "" {
		model = p.ModelName()
	}
	logger.Info("relay: wired",
		"channels", len(channels),
		"model", model,
		"context_limit", orch.Policy().String(),
		"debug", cfg.Relay.DebugEnabled(),
	)
	return nil
}

// registerJobs adds the housekeeping jobs. A schedule of "off" skips the
// job.
func registerJobs(s *cron.Scheduler, cfg config.CronConfig, store *history.Store, completer *provider.Completer, logger *slog.Logger) error {
	if !config.Disabled(cfg.HistoryStats) {
		if err := s.RegisterJob(&cron.HistoryStatsJob{
			Source:       store,
			Logger:       logger,
			ScheduleExpr: cfg.HistoryStats,
		}); err != nil {
			return err
		}
	}
	if !config.Disabled(cfg.ProviderProbe) {
		if err := s.RegisterJob(&cron.ProviderProbeJob{
			Prober:       completer,
			Logger:       logger,
			ScheduleExpr: cfg.ProviderProbe,
		}); err != nil {
			return err
		}
	}
	return nil
}
