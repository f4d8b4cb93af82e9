// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the crosscall CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crosscall",
		Short: "crosscall - an invocation router for plugin commands",
		Long: `crosscall routes named command invocations into registered plugins,
delivering exactly one terminal response per invocation plus optional
out-of-band channel data.`,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}
