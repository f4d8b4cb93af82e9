// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Choochmeque/crosscall/internal/bridge"
	"github.com/Choochmeque/crosscall/internal/builtin"
	"github.com/Choochmeque/crosscall/internal/config"
	"github.com/Choochmeque/crosscall/internal/control"
	"github.com/Choochmeque/crosscall/internal/logging"
	"github.com/Choochmeque/crosscall/internal/observability"
	"github.com/Choochmeque/crosscall/internal/plugin"
	"github.com/Choochmeque/crosscall/internal/plugin/lua"
	"github.com/Choochmeque/crosscall/pkg/errutil"
)

// shutdownTimeout bounds graceful shutdown of the servers.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the invocation router",
		Long: `Start the router: register builtin plugins, load plugin manifests,
and serve the control socket and observability endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "config file path")
	cmd.Flags().String("socket-path", "", "control socket path (default: XDG runtime dir)")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("plugins-dir", "", "plugin manifests directory (default: XDG data dir)")
	cmd.Flags().Int("queue-depth", 0, "dispatch queue depth")
	cmd.Flags().String("log-format", "", "log format (json or text)")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")

	return cmd
}

// runServe starts the router and blocks until a shutdown signal or a
// server failure.
func runServe(ctx context.Context, cfg config.Config) error {
	logging.SetDefault("crosscall", version, cfg.LogFormat, cfg.LogLevel)

	slog.Info("starting invocation router",
		"socket_path", cfg.SocketPath,
		"plugins_dir", cfg.PluginsDir,
		"queue_depth", cfg.QueueDepth,
	)

	rt, err := bridge.NewRuntime(bridge.WithQueueDepth(cfg.QueueDepth))
	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}
	defer rt.Close()

	if err := rt.RegisterPlugin(builtin.EchoName, builtin.NewEcho(), "", nil); err != nil {
		return fmt.Errorf("failed to register builtin echo plugin: %w", err)
	}

	manager := plugin.NewManager(cfg.PluginsDir,
		plugin.WithHost(plugin.TypeLua, lua.NewHost()))
	if err := manager.LoadAll(ctx, rt); err != nil {
		// Individual plugin failures are logged and skipped; this is a
		// directory-level failure.
		errutil.LogError(slog.Default(), "plugin loading failed", err)
	}
	slog.Info("plugins loaded", "plugins", manager.Loaded())

	// Signal-driven shutdown, also reachable via the control socket.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctlServer := control.NewServer(rt, cfg.SocketPath, control.ShutdownFunc(stop))
	if err := ctlServer.Start(); err != nil {
		return fmt.Errorf("failed to start control server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := ctlServer.Stop(shutdownCtx); err != nil {
			errutil.LogError(slog.Default(), "control server shutdown failed", err)
		}
	}()

	var obsErrCh <-chan error
	if cfg.MetricsAddr != "" {
		obsServer := observability.NewServer(cfg.MetricsAddr, func() bool { return true })
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				errutil.LogError(slog.Default(), "observability server shutdown failed", err)
			}
		}()
	}

	slog.Info("router ready", "socket_path", ctlServer.SocketPath())

	select {
	case <-sigCtx.Done():
		slog.Info("shutdown requested")
	case err, ok := <-obsErrCh:
		if ok && err != nil {
			return fmt.Errorf("observability server failed: %w", err)
		}
	}

	return nil
}
