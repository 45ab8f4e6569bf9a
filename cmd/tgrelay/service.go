package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/tgrelay/pkg/app"
)

const serviceName = "tgrelay"

// program adapts app.Run to the service manager's Start/Stop callbacks.
type program struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- app.Run(ctx, p.params)
	}()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// serviceConfig describes the installed service. The service manager runs
// "tgrelay service run" with the same flags.
func serviceConfig(flags runFlags) (*service.Config, error) {
	args := []string{"service", "run"}
	for _, f := range []struct{ name, value string }{
		{"--config", flags.config},
		{"--data-dir", flags.dataDir},
		{"--env-file", flags.envFile},
	} {
		if f.value == "" {
			continue
		}
		abs, err := filepath.Abs(f.value)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", f.name, err)
		}
		args = append(args, f.name, abs)
	}
	if flags.debug {
		args = append(args, "--debug")
	}

	return &service.Config{
		Name:        serviceName,
		DisplayName: "tgrelay",
		Description: "Relays Telegram chats to an OpenAI-compatible LLM.",
		Arguments:   args,
	}, nil
}

func newService(flags runFlags) (service.Service, *program, error) {
	cfg, err := serviceConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	prg := &program{params: flags.params()}
	s, err := service.New(prg, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("service: %w", err)
	}
	return s, prg, nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage tgrelay as a system service",
	}

	var installFlags runFlags
	install := &cobra.Command{
		Use:   "install",
		Short: "Install the system service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return controlService(cmd, installFlags, "install")
		},
	}
	installFlags.register(install)

	var runFlagsValue runFlags
	run := &cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager",
		Hidden: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, _, err := newService(runFlagsValue)
			if err != nil {
				return err
			}
			return s.Run()
		},
	}
	runFlagsValue.register(run)

	cmd.AddCommand(install, run, serviceStatusCmd())
	for _, action := range []string{"uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", capitalize(action)),
			RunE: func(cmd *cobra.Command, _ []string) error {
				return controlService(cmd, runFlags{}, action)
			},
		})
	}
	return cmd
}

func controlService(cmd *cobra.Command, flags runFlags, action string) error {
	s, _, err := newService(flags)
	if err != nil {
		return err
	}
	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("service %s: %w", action, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
	return nil
}

func serviceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the system service status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := newService(runFlags{})
			if err != nil {
				return err
			}
			st, err := s.Status()
			if errors.Is(err, service.ErrNotInstalled) {
				fmt.Fprintln(cmd.OutOrStdout(), "not installed")
				return nil
			}
			if err != nil {
				return fmt.Errorf("service status: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusText(st))
			return nil
		},
	}
}

func statusText(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
