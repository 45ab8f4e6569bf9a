// Package app provides the entry point shared by the tgrelay commands.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/cron"
	"github.com/flemzord/tgrelay/internal/gateway"
	"github.com/flemzord/tgrelay/internal/id"
	"github.com/flemzord/tgrelay/internal/logging"
	"github.com/flemzord/tgrelay/internal/security"
	"github.com/flemzord/tgrelay/internal/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// EnvFiles are loaded before the configuration. Defaults to ".env".
	EnvFiles []string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// Debug forces the debug log level.
	Debug bool

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Run loads configuration, wires the relay, starts all modules, and blocks
// until ctx is cancelled or a shutdown signal is received.
func Run(ctx context.Context, params RunParams) error {
	if err := config.LoadDotEnv(params.EnvFiles...); err != nil {
		return err
	}

	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	redactor := security.NewRedactor()
	for _, secret := range moduleSecrets(cfg) {
		redactor.AddLiteral(secret)
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	if params.Debug || cfg.Relay.DebugEnabled() {
		level = slog.LevelDebug
	}
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := logging.New(out, logging.Options{
		Level:    level,
		JSON:     cfg.Log.JSON(),
		Redactor: redactor,
	})
	slog.SetDefault(logger)

	logger.Info("tgrelay starting",
		"version", params.Version,
		"commit", params.Commit,
		"config", cfgPath,
	)
	for _, w := range config.Warnings(cfg) {
		logger.Warn(w)
	}

	if err := id.Init(cfg.NodeID); err != nil {
		return err
	}

	tcfg := cfg.Telemetry
	tcfg.ServiceVersion = params.Version
	tel, err := telemetry.Setup(ctx, tcfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("app: create data directory: %w", err)
	}

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)

	// Services read by modules during Provision must exist before
	// LoadModules.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appCtx.RegisterService(gateway.ServiceMetricsRegistry, registry)
	appCtx.RegisterService(gateway.ServiceConfigPath, cfgPath)

	scheduler := cron.NewScheduler(logger.With("component", "cron"))
	appCtx.RegisterService(cron.ServiceName, scheduler)

	application := core.NewApp(appCtx)
	if err := application.LoadModules(config.Resolve(cfg)); err != nil {
		return err
	}

	// Wire the relay between LoadModules and Start: the gateway resolves
	// the relay services when it starts.
	if err := wireRelay(application, appCtx, cfg, registry, scheduler); err != nil {
		return err
	}

	return application.Run(ctx)
}

// LoadConfig loads the configuration at path. An empty path is resolved
// with ResolveConfigPath, falling back to the built-in configuration when
// no file exists. It returns the path the configuration came from.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		path = ResolveConfigPath()
	}
	if path == "" {
		cfg, err := config.LoadDefault()
		if err != nil {
			return nil, "", err
		}
		return cfg, config.EmbeddedPath, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/tgrelay/tgrelay.yaml, then
// ~/.config/tgrelay/tgrelay.yaml, then ./tgrelay.yaml. It returns ""
// when none exists.
func ResolveConfigPath() string {
	return config.FindConfig()
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/tgrelay if set, otherwise ~/.local/share/tgrelay per
// the XDG spec.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "tgrelay")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "tgrelay")
}

// secretFields are the module config keys whose values never reach logs.
var secretFields = []string{"token", "api_key", "webhook_secret", "secret"}

// moduleSecrets collects secret values from the module configurations so
// they can be redacted as literals.
func moduleSecrets(cfg *config.Config) []string {
	var secrets []string
	for _, node := range cfg.Modules {
		var fields map[string]any
		if err := node.Decode(&fields); err != nil {
			continue
		}
		for _, key := range secretFields {
			if s, ok := fields[key].(string); ok && s != "" {
				secrets = append(secrets, s)
			}
		}
		secrets = append(secrets, nestedSecrets(fields)...)
	}
	return secrets
}

// nestedSecrets returns the gateway webhook and auth secrets.
func nestedSecrets(fields map[string]any) []string {
	var out []string
	add := func(v any) {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if hooks, ok := fields["webhooks"].(map[string]any); ok {
		for _, h := range hooks {
			if m, ok := h.(map[string]any); ok {
				add(m["secret"])
			}
		}
	}
	if auth, ok := fields["auth"].(map[string]any); ok {
		add(auth["bearer_token"])
		add(auth["basic_pass"])
	}
	return out
}
