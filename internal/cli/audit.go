// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/sultan/internal/audit"
)

func newAuditCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log of executed command lines",
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check the audit log hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := audit.Verify(app.Config.Audit.Path); err != nil {
				return errors.Wrap(err, "audit verification FAILED")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "audit log integrity verified")
			return nil
		},
	}

	var n int
	tail := &cobra.Command{
		Use:     "tail",
		Aliases: []string{"show"},
		Short:   "Print the most recent audit entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := audit.Tail(app.Config.Audit.Path, n)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "no audit entries")
				return nil
			}
			for _, e := range entries {
				data, _ := json.MarshalIndent(e, "", "  ")
				fmt.Fprintf(w, "%s\n", data)
			}
			return nil
		},
	}
	tail.Flags().IntVarP(&n, "lines", "n", 20, "number of entries to show")

	cmd.AddCommand(verify, tail)
	return cmd
}
