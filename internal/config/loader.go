package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file name searched for on disk.
const DefaultFileName = "tgrelay.yaml"

// EmbeddedPath is reported as the source of the built-in configuration.
const EmbeddedPath = "<embedded>"

//go:embed default.yaml
var defaultYAML []byte

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads a YAML configuration file, expands environment variables,
// and parses it into a Config.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault parses the built-in configuration.
func LoadDefault() (*Config, error) {
	cfg, err := Parse(defaultYAML)
	if err != nil {
		return nil, fmt.Errorf("config: built-in defaults: %w", err)
	}
	return cfg, nil
}

// DefaultYAML returns the built-in configuration, unexpanded.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultYAML))
	copy(out, defaultYAML)
	return out
}

// Parse expands environment variables in raw and decodes it.
func Parse(raw []byte) (*Config, error) {
	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("expanding variables: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	return &cfg, nil
}

// LoadRaw reads path into a generic map after variable expansion. The
// admin API uses it to show the effective file.
func LoadRaw(path string) (map[string]any, error) {
	var raw []byte
	var err error
	if path == EmbeddedPath {
		raw = defaultYAML
	} else if raw, err = os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	out := map[string]any{}
	if err := yaml.Unmarshal(expanded, &out); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return out, nil
}

// FindConfig returns the first config file found in the search order
// $XDG_CONFIG_HOME/tgrelay/tgrelay.yaml (or ~/.config/tgrelay), then
// ./tgrelay.yaml. It returns "" when none exists.
func FindConfig() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// SearchPaths lists the locations FindConfig checks, in order.
func SearchPaths() []string {
	var paths []string
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		paths = append(paths, filepath.Join(xdg, "tgrelay", DefaultFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tgrelay", DefaultFileName))
	}
	return append(paths, DefaultFileName)
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// It returns an error listing every variable with neither a value nor a
// default.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if subs[2] != nil {
			return subs[2]
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
