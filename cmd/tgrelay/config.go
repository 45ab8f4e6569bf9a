package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/config"
	ctxengine "github.com/flemzord/tgrelay/internal/context"
	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/pkg/app"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			return checkConfig(cmd.OutOrStdout(), args[0])
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the configuration")
	return cmd
}

// checkConfig validates the file at path and provisions every module it
// names in a throwaway data directory.
func checkConfig(out io.Writer, path string) error {
	cfg, _, err := app.LoadConfig(path)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	dataDir, err := os.MkdirTemp("", "tgrelay-check-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(dataDir) }()

	logger := slog.New(slog.DiscardHandler)
	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)

	application := core.NewApp(appCtx)
	ids := config.Resolve(cfg)
	if err := application.LoadModules(ids); err != nil {
		return err
	}

	fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(out, "  %s\n", id)
	}
	for _, w := range config.Warnings(cfg) {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}

// Models offered by the wizard. Any other model can be set in the file.
var wizardModels = []string{
	"llama-3.1-8b-instant",
	"llama-3.3-70b-versatile",
	"gemma2-9b-it",
}

// initAnswers holds the values collected by the config wizard.
type initAnswers struct {
	Token        string
	APIKey       string
	Model        string
	SystemPrompt string
	ContextLimit string
	Mode         string
	WebhookURL   string
	Gateway      bool
	Debug        bool
}

func configInitCmd() *cobra.Command {
	var (
		output  string
		envFile string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				for _, p := range []string{output, envFile} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s already exists (use --force to overwrite)", p)
					}
				}
			}

			answers := initAnswers{
				Model:        wizardModels[0],
				SystemPrompt: "You are a helpful assistant.",
				ContextLimit: "5",
				Mode:         "polling",
			}
			if err := runWizard(&answers); err != nil {
				return err
			}
			if err := writeInit(answers, output, envFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s and %s\n", output, envFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.DefaultFileName, "Configuration file to write")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "File receiving the secrets")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

func runWizard(a *initAnswers) error {
	models := make([]huh.Option[string], len(wizardModels))
	for i, m := range wizardModels {
		models[i] = huh.NewOption(m, m)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather.").
				EchoMode(huh.EchoModePassword).
				Validate(required("bot token")).
				Value(&a.Token),
			huh.NewInput().
				Title("Groq API key").
				EchoMode(huh.EchoModePassword).
				Validate(required("API key")).
				Value(&a.APIKey),
			huh.NewSelect[string]().
				Title("Model").
				Options(models...).
				Value(&a.Model),
		),
		huh.NewGroup(
			huh.NewText().
				Title("System prompt").
				Value(&a.SystemPrompt),
			huh.NewInput().
				Title("Context limit").
				Description(`Previous turns sent with each message, or "all".`).
				Validate(validateLimit).
				Value(&a.ContextLimit),
			huh.NewConfirm().
				Title("Log every exchange (debug mode)?").
				Value(&a.Debug),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Telegram updates").
				Options(
					huh.NewOption("Long polling", "polling"),
					huh.NewOption("Webhook (needs a public URL)", "webhook"),
				).
				Value(&a.Mode),
			huh.NewConfirm().
				Title("Enable the HTTP gateway (/health, /metrics)?").
				Value(&a.Gateway),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Public webhook URL").
				Description("Telegram posts updates to this URL.").
				Validate(required("webhook URL")).
				Value(&a.WebhookURL),
		).WithHideFunc(func() bool { return a.Mode != "webhook" }),
	)
	return form.Run()
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateLimit(s string) error {
	if ctxengine.ParseLimit(s).Fallback() {
		return errors.New(`enter a number or "all"`)
	}
	return nil
}

// writeInit writes the configuration to output and the secrets to envFile.
// The configuration references the secrets by variable name.
func writeInit(a initAnswers, output, envFile string) error {
	raw, err := renderConfig(a)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(output, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	if err := godotenv.Write(renderEnv(a), envFile); err != nil {
		return fmt.Errorf("writing %s: %w", envFile, err)
	}
	return os.Chmod(envFile, 0o600)
}

func renderEnv(a initAnswers) map[string]string {
	env := map[string]string{
		"TELEGRAM_BOT_TOKEN": strings.TrimSpace(a.Token),
		"GROQ_API_KEY":       strings.TrimSpace(a.APIKey),
	}
	if a.Mode == "webhook" {
		env["TELEGRAM_WEBHOOK_SECRET"] = rand.Text()
	}
	return env
}

type initConfig struct {
	Version string                    `yaml:"version"`
	Relay   config.RelayConfig        `yaml:"relay"`
	Modules map[string]map[string]any `yaml:"modules"`
}

func renderConfig(a initAnswers) ([]byte, error) {
	telegram := map[string]any{
		"token": "${TELEGRAM_BOT_TOKEN}",
		"mode":  a.Mode,
	}
	if a.Mode == "webhook" {
		telegram["webhook_url"] = strings.TrimSpace(a.WebhookURL)
		telegram["webhook_secret"] = "${TELEGRAM_WEBHOOK_SECRET}"
	}

	cfg := initConfig{
		Version: "1",
		Relay: config.RelayConfig{
			SystemPrompt: strings.TrimSpace(a.SystemPrompt),
			ContextLimit: strings.TrimSpace(a.ContextLimit),
			Model:        a.Model,
			Debug:        fmt.Sprint(a.Debug),
		},
		Modules: map[string]map[string]any{
			"channel.telegram": telegram,
			"provider.openai_compatible": {
				"api_key": "${GROQ_API_KEY}",
				"model":   a.Model,
			},
		},
	}
	if a.Gateway || a.Mode == "webhook" {
		cfg.Modules["gateway.http"] = map[string]any{"bind": "127.0.0.1:8080"}
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("rendering config: %w", err)
	}
	return append([]byte("# Generated by tgrelay config init. Secrets live in the env file.\n"), body...), nil
}
