package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/kardianos/service"

	"github.com/flemzord/tgrelay/internal/config"
)

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"tgrelay dev", "channel.telegram", "provider.openai_compatible", "gateway.http", "transcript.sqlite"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRenderConfig(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABCdef")
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "s3cret")

	tests := []struct {
		name        string
		answers     initAnswers
		wantModules []string
	}{
		{
			name: "polling",
			answers: initAnswers{
				Model: "llama-3.1-8b-instant", SystemPrompt: "Be brief.",
				ContextLimit: "all", Mode: "polling",
			},
			wantModules: []string{"channel.telegram", "provider.openai_compatible"},
		},
		{
			name: "webhook_adds_gateway",
			answers: initAnswers{
				Model: "llama-3.3-70b-versatile", ContextLimit: "3",
				Mode: "webhook", WebhookURL: "https://bot.example.com/webhooks/telegram",
				Debug: true,
			},
			wantModules: []string{"channel.telegram", "gateway.http", "provider.openai_compatible"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := renderConfig(tt.answers)
			if err != nil {
				t.Fatalf("renderConfig() error = %v", err)
			}
			cfg, err := config.Parse(raw)
			if err != nil {
				t.Fatalf("Parse() error = %v\n%s", err, raw)
			}
			if err := config.Validate(cfg); err != nil {
				t.Fatalf("Validate() error = %v\n%s", err, raw)
			}
			if got := config.Resolve(cfg); !slices.Equal(got, tt.wantModules) {
				t.Errorf("modules = %v, want %v", got, tt.wantModules)
			}
			if cfg.Relay.ContextLimit != tt.answers.ContextLimit || cfg.Relay.Model != tt.answers.Model {
				t.Errorf("relay = %+v", cfg.Relay)
			}
			if cfg.Relay.DebugEnabled() != tt.answers.Debug {
				t.Errorf("debug = %q, want %v", cfg.Relay.Debug, tt.answers.Debug)
			}
			if strings.Contains(string(raw), "gsk_test") {
				t.Error("rendered config contains the API key")
			}
		})
	}
}

func TestWriteInit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	output := filepath.Join(dir, "conf", "tgrelay.yaml")
	envFile := filepath.Join(dir, ".env")

	a := initAnswers{Token: " 123456:ABCdef ", APIKey: "gsk_test", Model: "m", ContextLimit: "5", Mode: "webhook", WebhookURL: "https://x"}
	if err := writeInit(a, output, envFile); err != nil {
		t.Fatalf("writeInit() error = %v", err)
	}

	if _, err := os.Stat(output); err != nil {
		t.Errorf("config not written: %v", err)
	}
	env, err := godotenv.Read(envFile)
	if err != nil {
		t.Fatalf("reading env file: %v", err)
	}
	if env["TELEGRAM_BOT_TOKEN"] != "123456:ABCdef" || env["GROQ_API_KEY"] != "gsk_test" {
		t.Errorf("env = %v", env)
	}
	if env["TELEGRAM_WEBHOOK_SECRET"] == "" {
		t.Error("webhook secret not generated")
	}
	info, err := os.Stat(envFile)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("env file mode = %o, want 600", perm)
	}
}

func TestValidateLimit(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"0", "5", "all"} {
		if err := validateLimit(ok); err != nil {
			t.Errorf("validateLimit(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "five", "ALL"} {
		if err := validateLimit(bad); err == nil {
			t.Errorf("validateLimit(%q) = nil, want error", bad)
		}
	}
}

func TestCheckConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tgrelay.yaml")
	body := `version: "1"
modules:
  channel.telegram:
    token: "123456:ABCdef"
  provider.openai_compatible:
    api_key: gsk_test
  transcript.sqlite: {}
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := checkConfig(&out, path); err != nil {
		t.Fatalf("checkConfig() error = %v", err)
	}
	if !strings.Contains(out.String(), "Configuration OK (3 modules)") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCheckConfig_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tgrelay.yaml")
	if err := os.WriteFile(path, []byte("version: \"2\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := checkConfig(&bytes.Buffer{}, path); err == nil {
		t.Error("expected validation error")
	}
}

func TestServiceConfig(t *testing.T) {
	t.Parallel()

	cfg, err := serviceConfig(runFlags{config: "tgrelay.yaml", envFile: "/etc/tgrelay.env", debug: true})
	if err != nil {
		t.Fatalf("serviceConfig() error = %v", err)
	}
	if cfg.Name != serviceName {
		t.Errorf("Name = %q", cfg.Name)
	}

	wd, _ := os.Getwd()
	want := []string{"service", "run", "--config", filepath.Join(wd, "tgrelay.yaml"), "--env-file", "/etc/tgrelay.env", "--debug"}
	if !slices.Equal(cfg.Arguments, want) {
		t.Errorf("Arguments = %v, want %v", cfg.Arguments, want)
	}
}

func TestStatusText(t *testing.T) {
	t.Parallel()

	tests := map[service.Status]string{
		service.StatusRunning: "running",
		service.StatusStopped: "stopped",
		service.StatusUnknown: "unknown",
	}
	for st, want := range tests {
		if got := statusText(st); got != want {
			t.Errorf("statusText(%v) = %q, want %q", st, got, want)
		}
	}
}
