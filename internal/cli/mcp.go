// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/cobra"

	"github.com/marcelocantos/sultan/internal/mcpserver"
)

func newMCPCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the run and render tools over MCP (stdio)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			factory, err := app.factory()
			if err != nil {
				return err
			}
			return mcpserver.Serve(mcpserver.New(factory, app.Version))
		},
	}
}
