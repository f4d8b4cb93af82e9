// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Choochmeque/crosscall/internal/plugin"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the plugin manifest JSON schema",
		Long:  `Print the JSON schema that plugin.yaml manifests are validated against.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := plugin.GenerateSchema()
			if err != nil {
				return fmt.Errorf("failed to generate schema: %w", err)
			}
			cmd.Println(string(data))
			return nil
		},
	}
}
