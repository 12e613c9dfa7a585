package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clipshift/internal/daemonctl"
	"clipshift/internal/ipc"
)

const (
	startWaitTimeout = 15 * time.Second
	stopGracePeriod  = 10 * time.Second
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the clipshift daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			executable, err := resolveDaemonExecutable()
			if err != nil {
				return err
			}
			opts := daemonctl.LaunchOptions{}
			if ctx.configFlag != nil {
				opts.ConfigPath = *ctx.configFlag
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), executable, opts, startWaitTimeout)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon started (pid %d)\n", result.PID)
			}
			return nil
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the clipshift daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), cfg, stopGracePeriod)
			if err != nil {
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
					return nil
				}
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon did not stop in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
			return nil
		},
	}
}

func newRestartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the clipshift daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if _, err := daemonctl.StopAndTerminate(ctx.socketPath(), cfg, stopGracePeriod); err != nil &&
				!errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				return err
			}
			executable, err := resolveDaemonExecutable()
			if err != nil {
				return err
			}
			opts := daemonctl.LaunchOptions{}
			if ctx.configFlag != nil {
				opts.ConfigPath = *ctx.configFlag
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), executable, opts, startWaitTimeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon restarted (pid %d)\n", result.PID)
			return nil
		},
	}
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause worker pickup (the in-flight item finishes first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Pause(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Worker paused")
				return nil
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume worker pickup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Resume(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Worker resumed")
				return nil
			})
		},
	}
}

func newAutoPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auto-pause on|off [COUNT]",
		Short: "Pause the worker automatically after N completed uploads",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			after := 0
			if len(args) == 2 {
				parsed, err := strconv.Atoi(args[1])
				if err != nil || parsed <= 0 {
					return fmt.Errorf("invalid completion count %q", args[1])
				}
				after = parsed
			}
			if enabled && after == 0 {
				return fmt.Errorf("auto-pause on requires a completion count")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.SetAutoPause(enabled, after); err != nil {
					return err
				}
				if enabled {
					fmt.Fprintf(cmd.OutOrStdout(), "Auto-pause after %d completed uploads\n", after)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Auto-pause disabled")
				}
				return nil
			})
		},
	}
}

// resolveDaemonExecutable prefers a clipshiftd binary next to the CLI, then
// falls back to PATH.
func resolveDaemonExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "clipshiftd")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("clipshiftd")
	if err != nil {
		return "", fmt.Errorf("clipshiftd binary not found next to clipshift or on PATH")
	}
	return path, nil
}
