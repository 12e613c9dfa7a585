package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"clipshift/internal/config"
	"clipshift/internal/daemon"
	"clipshift/internal/ipc"
	"clipshift/internal/logging"
)

// Run starts the daemon runtime loop and blocks until a termination signal
// arrives or a client requests shutdown over the socket.
func Run(cmdCtx context.Context, cfg *config.Config, logger *slog.Logger, version string) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	d, err := daemon.New(cfg, logger, version)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return err
		}
		return fmt.Errorf("start daemon: %w", err)
	}

	shutdownRequested := make(chan struct{}, 1)
	server := ipc.NewServer(cfg.Paths.SocketPath, d, func() {
		select {
		case shutdownRequested <- struct{}{}:
		default:
		}
	}, logger)
	if err := server.Start(signalCtx); err != nil {
		return fmt.Errorf("start ipc server: %w", err)
	}
	defer server.Close()

	select {
	case <-signalCtx.Done():
		logger.Info("termination signal received")
	case <-shutdownRequested:
		logger.Info("shutdown requested over socket")
	}

	d.Stop()
	return nil
}
