package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/history"
	"github.com/flemzord/tgrelay/internal/provider"
	"github.com/flemzord/tgrelay/internal/router"
)

// Service names the gateway reads from the AppContext at Start. All are
// optional; missing ones are left out of the responses.
const (
	ServiceMetricsRegistry = "metrics.registry"
	ServiceHistory         = "relay.history"
	ServiceCompleter       = "provider.completer"
	ServiceRouter          = "router"
	ServiceChannels        = "channel.dispatcher"
	ServiceConfigPath      = "config.path"

	// ServiceWebhooks is registered by the gateway during Provision.
	ServiceWebhooks = "gateway.webhook_dispatcher"
)

// HistoryReader exposes the stored conversations.
type HistoryReader interface {
	Snapshot() history.History
	Stats() history.Stats
}

// HealthReporter reports upstream provider health.
type HealthReporter interface {
	Health() provider.HealthReport
}

// RouterStats reports router queue activity.
type RouterStats interface {
	Stats() router.Stats
}

// ChannelLister lists the registered channels.
type ChannelLister interface {
	Channels() []string
}

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module. It serves health, metrics, status,
// admin, and webhook endpoints. Nothing imports it.
type Gateway struct {
	config     Config
	configPath string
	appCtx     *core.AppContext
	logger     *slog.Logger
	server     *http.Server
	listener   net.Listener
	dispatcher *WebhookDispatcher
	gatherer   prometheus.Gatherer
	httpStats  *httpMetrics
	startedAt  time.Time

	// Resolved at Start from the service registry.
	history  HistoryReader
	health   HealthReporter
	router   RouterStats
	channels ChannelLister
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger

	secrets := make(map[string]string, len(g.config.Webhooks))
	for source, cfg := range g.config.Webhooks {
		secrets[source] = cfg.Secret
	}
	g.dispatcher = NewWebhookDispatcher(g.logger, secrets)
	ctx.RegisterService(ServiceWebhooks, g.dispatcher)

	reg, _ := serviceAs[*prometheus.Registry](ctx, ServiceMetricsRegistry)
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	g.gatherer = reg
	g.httpStats = newHTTPMetrics(reg)

	g.configPath, _ = serviceAs[string](ctx, ServiceConfigPath)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", g.config.Bind, err)
	}
	return nil
}

// Start implements core.Starter. It resolves the services registered by
// other modules and starts serving.
func (g *Gateway) Start() error {
	g.history, _ = serviceAs[HistoryReader](g.appCtx, ServiceHistory)
	g.health, _ = serviceAs[HealthReporter](g.appCtx, ServiceCompleter)
	g.router, _ = serviceAs[RouterStats](g.appCtx, ServiceRouter)
	g.channels, _ = serviceAs[ChannelLister](g.appCtx, ServiceChannels)

	g.startedAt = time.Now()
	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}
	g.listener = ln

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Addr returns the listening address, or "" before Start.
func (g *Gateway) Addr() string {
	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// Stop implements core.Stopper.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// serviceAs looks up a service and asserts its type.
func serviceAs[T any](ctx *core.AppContext, name string) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	svc, ok := ctx.GetService(name)
	if !ok {
		return zero, false
	}
	v, ok := svc.(T)
	return v, ok
}
