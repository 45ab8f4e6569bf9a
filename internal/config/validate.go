package config

import (
	"errors"
	"fmt"
	"strings"

	ctxengine "github.com/flemzord/tgrelay/internal/context"
	"github.com/flemzord/tgrelay/internal/core"
)

// Validate checks the structural validity of a Config: the version, the
// module list, and the relay, log, and router sections. All problems are
// reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateModules(cfg)...)

	if _, err := cfg.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(cfg.Log.Format); f != "" && f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", cfg.Log.Format))
	}

	if cfg.NodeID < 0 || cfg.NodeID > 1023 {
		errs = append(errs, fmt.Errorf("config: node_id must be between 0 and 1023, got %d", cfg.NodeID))
	}
	if cfg.Router.Workers < 0 {
		errs = append(errs, errors.New("config: router.workers must not be negative"))
	}
	if cfg.Router.InboxSize < 0 {
		errs = append(errs, errors.New("config: router.inbox_size must not be negative"))
	}
	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("config: telemetry.sample_ratio must be within [0, 1], got %v", r))
	}

	return errors.Join(errs...)
}

func validateModules(cfg *Config) []error {
	var errs []error

	if len(cfg.Modules) == 0 {
		return []error{errors.New("config: at least one module must be configured")}
	}

	var channels, providers int
	for id := range cfg.Modules {
		info, ok := core.GetModule(id)
		if !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
			continue
		}
		switch info.ID.Namespace() {
		case "channel":
			channels++
		case "provider":
			providers++
		}
	}

	if channels == 0 {
		errs = append(errs, errors.New("config: no channel module configured"))
	}
	if providers != 1 {
		errs = append(errs, fmt.Errorf("config: exactly one provider module is required, got %d", providers))
	}
	return errs
}

// Warnings reports settings that are accepted but fall back to a
// default. The caller logs them at startup.
func Warnings(cfg *Config) []string {
	var warns []string

	if p := ctxengine.ParseLimit(cfg.Relay.ContextLimit); cfg.Relay.ContextLimit != "" && p.Fallback() {
		warns = append(warns, fmt.Sprintf(
			"relay.context_limit %q is neither %q nor an integer; the full history will be sent",
			cfg.Relay.ContextLimit, ctxengine.LimitAll))
	}
	if d := strings.TrimSpace(cfg.Relay.Debug); d != "" && !cfg.Relay.DebugEnabled() && !isFalse(d) {
		warns = append(warns, fmt.Sprintf("relay.debug %q is not a boolean; debug output stays off", cfg.Relay.Debug))
	}
	if !cfg.Telemetry.Enabled() && cfg.Telemetry.Headers != "" {
		warns = append(warns, "telemetry.headers is set but telemetry.endpoint is empty; tracing stays off")
	}
	return warns
}

func isFalse(s string) bool {
	switch s {
	case "0", "f", "F", "false", "FALSE", "False":
		return true
	}
	return false
}
