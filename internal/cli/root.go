// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package cli wires the sultan subcommands onto cobra.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/sultan"
	"github.com/marcelocantos/sultan/internal/audit"
	"github.com/marcelocantos/sultan/internal/config"
	"github.com/marcelocantos/sultan/internal/echo"
	"github.com/marcelocantos/sultan/internal/shellerr"
)

// App carries the process-wide dependencies shared by every subcommand.
type App struct {
	Config  *config.Config
	Audit   *audit.Logger // nil disables auditing
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Version string
	// Invoker overrides the detected user; empty means detect.
	Invoker string
}

// factory builds Builders sharing the App's settings.
func (a *App) factory() (sultan.Factory, error) {
	log, err := echo.New(a.Config.EchoOptions(a.Stderr))
	if err != nil {
		return nil, shellerr.Configuration("log settings: %v", err)
	}
	opts := []sultan.Option{sultan.WithConfig(a.Config), sultan.WithLogger(log)}
	if a.Audit != nil {
		opts = append(opts, sultan.WithAudit(a.Audit))
	}
	if a.Invoker != "" {
		opts = append(opts, sultan.WithInvoker(a.Invoker))
	}
	return sultan.NewFactory(opts...), nil
}

// usageError marks errors that stem from how sultan was invoked.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// NewRootCommand builds the sultan command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "sultan",
		Short: "Build shell command lines from parts and run them locally or over ssh",
		Long: `sultan composes a command line from commands, operators and redirects,
wraps it in an execution context (working directory, sourced file, sudo,
ssh), and runs it through a shell, either waiting for completion or
streaming its input and output.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(app.Stdin)
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		newRunCommand(app),
		newPipeCommand(app),
		newRenderCommand(app),
		newScriptCommand(app),
		newMCPCommand(app),
		newAuditCommand(app),
		newVersionCommand(app),
	)
	return root
}

// Execute runs the command tree with args and maps the outcome to a
// process exit status: the child's own status when it ran, 1 for usage
// and context errors, 2 for anything else.
func Execute(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return exitStatus(app.Stderr, err)
}

// exitCoder is implemented by errors carrying a child's exit status.
type exitCoder interface{ ExitStatus() int }

// childExit reports a non-zero child status that was already shown.
type childExit int

func (c childExit) Error() string   { return fmt.Sprintf("exit status %d", int(c)) }
func (c childExit) ExitStatus() int { return int(c) }

func exitStatus(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitStatus()
	}
	var exitErr *shellerr.ExitError
	if errors.As(err, &exitErr) {
		// The diagnostic report already showed the details.
		return exitErr.Code
	}
	fmt.Fprintf(w, "sultan: %v\n", err)
	var ue usageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, shellerr.ErrInvalidArgument),
		errors.Is(err, shellerr.ErrConfiguration),
		errors.Is(err, shellerr.ErrNotFound),
		errors.Is(err, shellerr.ErrContextMisuse):
		return 1
	}
	return 2
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sultan version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "sultan %s\n", app.Version)
			return nil
		},
	}
}
