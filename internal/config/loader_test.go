package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TGRELAY_TEST_TOKEN", "123:abc")
	t.Setenv("TGRELAY_TEST_LIMIT", "all")

	path := writeFile(t, t.TempDir(), "tgrelay.yaml", `
version: "1"
node_id: 3
log:
  level: debug
  format: json
relay:
  system_prompt: Be brief.
  context_limit: ${TGRELAY_TEST_LIMIT}
  model: ${TGRELAY_TEST_MODEL:-llama-3.1-8b-instant}
  debug: "true"
router:
  workers: 8
  serialize_conversations: true
cron:
  history_stats: "off"
modules:
  channel.telegram:
    token: ${TGRELAY_TEST_TOKEN}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Version != "1" || cfg.NodeID != 3 {
		t.Errorf("Version/NodeID = %q/%d", cfg.Version, cfg.NodeID)
	}
	if lvl, _ := cfg.Log.SlogLevel(); lvl != slog.LevelDebug || !cfg.Log.JSON() {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Relay.SystemPrompt != "Be brief." || cfg.Relay.ContextLimit != "all" ||
		cfg.Relay.Model != "llama-3.1-8b-instant" || !cfg.Relay.DebugEnabled() {
		t.Errorf("Relay = %+v", cfg.Relay)
	}
	if cfg.Router.Workers != 8 || !cfg.Router.SerializeConversations {
		t.Errorf("Router = %+v", cfg.Router)
	}
	if !Disabled(cfg.Cron.HistoryStats) || Disabled(cfg.Cron.ProviderProbe) {
		t.Errorf("Cron = %+v", cfg.Cron)
	}

	node, ok := cfg.Modules["channel.telegram"]
	if !ok {
		t.Fatal("channel.telegram missing")
	}
	var tg struct {
		Token string `yaml:"token"`
	}
	if err := node.Decode(&tg); err != nil {
		t.Fatal(err)
	}
	if tg.Token != "123:abc" {
		t.Errorf("token = %q, want expanded value", tg.Token)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := writeFile(t, dir, "bad.yaml", "version: [unclosed")
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}

	unresolved := writeFile(t, dir, "unresolved.yaml", "token: ${TGRELAY_TEST_SURELY_UNSET}\n")
	_, err := Load(unresolved)
	if err == nil || !strings.Contains(err.Error(), "TGRELAY_TEST_SURELY_UNSET") {
		t.Errorf("Load() error = %v, want unresolved variable", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TGRELAY_TEST_SET", "value")
	t.Setenv("TGRELAY_TEST_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"a: ${TGRELAY_TEST_SET}", "a: value"},
		{"a: ${TGRELAY_TEST_SET:-other}", "a: value"},
		{"a: ${TGRELAY_TEST_EMPTY:-other}", "a: "},
		{"a: ${TGRELAY_TEST_UNSET_X:-fallback}", "a: fallback"},
		{"a: ${TGRELAY_TEST_UNSET_X:-}", "a: "},
		{"a: $NOT_A_PATTERN", "a: $NOT_A_PATTERN"},
	}

	for _, tt := range tests {
		got, err := expandEnv([]byte(tt.in))
		if err != nil {
			t.Errorf("expandEnv(%q) error = %v", tt.in, err)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadDefault(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("SYSTEM_PROMPT", "You are terse.")
	t.Setenv("CONTEXT_LIMIT", "10")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	if cfg.Relay.SystemPrompt != "You are terse." || cfg.Relay.ContextLimit != "10" || !cfg.Relay.DebugEnabled() {
		t.Errorf("Relay = %+v", cfg.Relay)
	}
	for _, id := range []string{"channel.telegram", "provider.openai_compatible"} {
		if _, ok := cfg.Modules[id]; !ok {
			t.Errorf("module %s missing from defaults", id)
		}
	}
	if cfg.Telemetry.Enabled() {
		t.Error("telemetry should be off without an endpoint")
	}
}

func TestLoadDefault_RequiresSecrets(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if err := os.Unsetenv("TELEGRAM_BOT_TOKEN"); err != nil {
		t.Fatal(err)
	}

	_, err := LoadDefault()
	if err == nil || !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Errorf("LoadDefault() error = %v, want missing TELEGRAM_BOT_TOKEN", err)
	}
}

func TestLoadRaw(t *testing.T) {
	t.Setenv("TGRELAY_TEST_KEY", "gsk_secret")
	path := writeFile(t, t.TempDir(), "c.yaml", "modules:\n  provider.x:\n    api_key: ${TGRELAY_TEST_KEY}\n")

	raw, err := LoadRaw(path)
	if err != nil {
		t.Fatalf("LoadRaw() error = %v", err)
	}
	mods, ok := raw["modules"].(map[string]any)
	if !ok {
		t.Fatalf("modules = %T", raw["modules"])
	}
	if mods["provider.x"].(map[string]any)["api_key"] != "gsk_secret" {
		t.Errorf("raw = %v", raw)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "TGRELAY_TEST_DOTENV=from-file\nTGRELAY_TEST_PRESET=from-file\n")
	t.Setenv("TGRELAY_TEST_PRESET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("TGRELAY_TEST_DOTENV") })

	if err := LoadDotEnv(path, filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("TGRELAY_TEST_DOTENV"); got != "from-file" {
		t.Errorf("TGRELAY_TEST_DOTENV = %q, want from-file", got)
	}
	if got := os.Getenv("TGRELAY_TEST_PRESET"); got != "from-env" {
		t.Errorf("TGRELAY_TEST_PRESET = %q, want existing value kept", got)
	}
}

func TestSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	paths := SearchPaths()
	if len(paths) != 2 || paths[0] != filepath.Join("/xdg", "tgrelay", "tgrelay.yaml") || paths[1] != "tgrelay.yaml" {
		t.Errorf("SearchPaths() = %v", paths)
	}
}
