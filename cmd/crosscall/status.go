// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Choochmeque/crosscall/internal/control"
	"github.com/Choochmeque/crosscall/internal/xdg"
)

// RouterStatus holds the status information reported by the status
// command.
type RouterStatus struct {
	Running       bool     `json:"running"`
	Health        string   `json:"health,omitempty"`
	PID           int      `json:"pid,omitempty"`
	UptimeSeconds int64    `json:"uptime_seconds,omitempty"`
	Plugins       []string `json:"plugins,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	socketPath string
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running router",
		Long:  `Query the control socket of a running router and report its health, uptime, and loaded plugins.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.socketPath, "socket-path", "", "control socket path (default: XDG runtime dir)")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	status := queryRouterStatus(cmd.Context(), cfg.socketPath)

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(formatStatusTable(status))
	return nil
}

// queryRouterStatus queries the control socket and returns the router
// status. Failures are reported in the Error field rather than as an
// error so the command can still render a "stopped" row.
func queryRouterStatus(ctx context.Context, socketPath string) RouterStatus {
	var status RouterStatus

	if socketPath == "" {
		socketPath = xdg.SocketPath()
	}
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		status.Error = "socket not found"
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := control.NewClient(socketPath)

	health, err := client.Health(ctx)
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	status.Health = health.Status

	routerStatus, err := client.Status(ctx)
	if err != nil {
		// Health succeeded, so the router is up even if status failed.
		status.Running = true
		return status
	}
	status.Running = routerStatus.Running
	status.PID = routerStatus.PID
	status.UptimeSeconds = routerStatus.UptimeSeconds

	if plugins, err := client.Plugins(ctx); err == nil {
		for _, p := range plugins {
			status.Plugins = append(status.Plugins, p.Name)
		}
	}

	return status
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status RouterStatus) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "STATUS\tHEALTH\tPID\tUPTIME\tPLUGINS")
	_, _ = fmt.Fprintln(w, "------\t------\t---\t------\t-------")

	if status.Running {
		_, _ = fmt.Fprintf(w, "running\t%s\t%d\t%s\t%s\n",
			status.Health, status.PID,
			formatUptime(status.UptimeSeconds),
			strings.Join(status.Plugins, ","))
	} else {
		reason := "not running"
		if status.Error != "" {
			reason = status.Error
		}
		_, _ = fmt.Fprintf(w, "stopped\t-\t-\t-\t%s\n", reason)
	}

	_ = w.Flush()
	return sb.String()
}

// formatUptime formats seconds into a human-readable duration.
func formatUptime(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}
