// Package main is the entry point for the tgrelay CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/pkg/app"

	// Compiled modules.
	_ "github.com/flemzord/tgrelay/internal/gateway"
	_ "github.com/flemzord/tgrelay/modules/channel/telegram"
	_ "github.com/flemzord/tgrelay/modules/provider/openai_compatible"
	_ "github.com/flemzord/tgrelay/modules/transcript/sqlite"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tgrelay",
		Short:         "Relay Telegram chats to an OpenAI-compatible LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd(), serviceCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tgrelay %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range core.GetModules() {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

// runFlags are the flags shared by start and service install.
type runFlags struct {
	config  string
	dataDir string
	envFile string
	debug   bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Persistent data directory")
	cmd.Flags().StringVar(&f.envFile, "env-file", ".env", "Environment file loaded before the configuration")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Enable debug logging")
}

func (f *runFlags) params() app.RunParams {
	p := app.RunParams{
		ConfigPath: f.config,
		DataDir:    f.dataDir,
		Debug:      f.debug,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
	if f.envFile != "" {
		p.EnvFiles = []string{f.envFile}
	}
	return p
}

func startCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the relay with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), flags.params())
		},
	}
	flags.register(cmd)
	return cmd
}
