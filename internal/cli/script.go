// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/sultan/internal/script"
)

func newScriptCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "script FILE",
		Short: "Run a Starlark recipe",
		Long: `Runs FILE as a Starlark program with a predeclared sultan module. Use
"-" to read the recipe from stdin.

  s = sultan.context(cwd = "/var/log")
  r = s.cmd("ls").pipe().cmd("grep", "syslog").run(halt = False)
  print(r.rc, r.stdout)`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := app.factory()
			if err != nil {
				return err
			}
			filename := args[0]
			var src any
			if filename == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				filename, src = "<stdin>", data
			}
			return script.RunFile(filename, src, script.Options{
				Factory: factory,
				Stdout:  cmd.OutOrStdout(),
				Context: cmd.Context(),
			})
		},
	}
}
