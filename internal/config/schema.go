// Package config loads the tgrelay YAML configuration, expands
// environment variables, and validates its structure.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/telemetry"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Only "1" is supported.
	Version string `yaml:"version"`

	// NodeID seeds message ID generation (0-1023).
	NodeID int64 `yaml:"node_id"`

	Log       LogConfig        `yaml:"log"`
	Relay     RelayConfig      `yaml:"relay"`
	Router    RouterConfig     `yaml:"router"`
	Cron      CronConfig       `yaml:"cron"`
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Modules maps module IDs (e.g. "channel.telegram") to their raw
	// YAML configuration.
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// SlogLevel parses Level. An empty level is info.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log.level: %w", err)
	}
	return lvl, nil
}

// JSON reports whether records are written as JSON.
func (c LogConfig) JSON() bool {
	return strings.EqualFold(c.Format, "json")
}

// RelayConfig holds the conversation settings. Values are kept as
// strings so that environment-provided text is parsed once, at startup.
type RelayConfig struct {
	SystemPrompt string `yaml:"system_prompt"`
	ContextLimit string `yaml:"context_limit"`
	Model        string `yaml:"model"`
	Debug        string `yaml:"debug"`
}

// DebugEnabled parses Debug with strconv.ParseBool. Invalid values are
// false.
func (c RelayConfig) DebugEnabled() bool {
	on, err := strconv.ParseBool(strings.TrimSpace(c.Debug))
	return err == nil && on
}

// RouterConfig sizes the message router.
type RouterConfig struct {
	Workers                int  `yaml:"workers"`
	InboxSize              int  `yaml:"inbox_size"`
	SerializeConversations bool `yaml:"serialize_conversations"`
}

// CronConfig holds job schedules. Empty means the job default; "off"
// disables the job.
type CronConfig struct {
	HistoryStats  string `yaml:"history_stats"`
	ProviderProbe string `yaml:"provider_probe"`
}

// Disabled reports whether a schedule turns its job off.
func Disabled(schedule string) bool {
	return strings.EqualFold(strings.TrimSpace(schedule), "off")
}
