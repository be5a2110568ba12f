// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/sultan"
	"github.com/marcelocantos/sultan/internal/pipeline"
)

// followInterval is how often streamed output is flushed to the terminal.
const followInterval = 50 * time.Millisecond

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usageError{fmt.Errorf("%s requires at least %d argument(s)", cmd.Name(), n)}
		}
		return nil
	}
}

func newRunCommand(app *App) *cobra.Command {
	var flags contextFlags
	cmd := &cobra.Command{
		Use:   "run [flags] -- NAME [ARGS...]",
		Short: "Run a single command",
		Example: `  sultan run --cwd /tmp -- ls -lah
  sultan run --sudo --user hodor -- ls /home/hodor`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, app, &flags, func(b *sultan.Builder) {
				b.Command(args[0], args[1:]...)
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newPipeCommand(app *App) *cobra.Command {
	var flags contextFlags
	cmd := &cobra.Command{
		Use:   "pipe [flags] -- TOKENS...",
		Short: "Run a compound command built from |, &&, ||, ; and redirects",
		Long: `Each argument is one token. Quote operators so the invoking shell passes
them through:

  sultan pipe -- cat /var/log/syslog '|' grep error '&&' echo found '>' /tmp/hits`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := pipeline.Parse(args)
			if err != nil {
				return err
			}
			return execute(cmd, app, &flags, func(b *sultan.Builder) {
				b.Append(nodes...)
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newRenderCommand(app *App) *cobra.Command {
	var flags contextFlags
	cmd := &cobra.Command{
		Use:   "render [flags] -- TOKENS...",
		Short: "Print the command line that pipe would run",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := pipeline.Parse(args)
			if err != nil {
				return err
			}
			b, err := load(app, &flags)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.Append(nodes...).String())
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}

func load(app *App, flags *contextFlags) (*sultan.Builder, error) {
	opts, err := flags.options()
	if err != nil {
		return nil, err
	}
	factory, err := app.factory()
	if err != nil {
		return nil, err
	}
	return factory(opts)
}

// execute loads the context, lets build append nodes, runs them and
// copies the output to the command's streams.
func execute(cmd *cobra.Command, app *App, flags *contextFlags, build func(*sultan.Builder)) error {
	b, err := load(app, flags)
	if err != nil {
		return err
	}
	return b.Within(func(b *sultan.Builder) error {
		build(b)
		res, err := b.Run(cmd.Context(), flags.runOptions()...)
		if res == nil {
			return err
		}
		if flags.stream && res.State() == sultan.Running {
			go feed(res, cmd.InOrStdin())
			follow(res, cmd.OutOrStdout(), cmd.ErrOrStderr())
			err = res.Wait()
		} else {
			printLines(cmd.OutOrStdout(), res.Stdout())
			printLines(cmd.ErrOrStderr(), res.Stderr())
		}
		if err != nil {
			return err
		}
		if f := res.Failure(); f != nil {
			return f
		}
		if rc := res.RC(); rc != 0 {
			if rc < 0 {
				rc = 1
			}
			return childExit(rc)
		}
		return nil
	})
}

// feed copies stdin to the child line by line until either side closes.
func feed(res *sultan.Result, in io.Reader) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if res.Write(sc.Text()) != nil {
			return
		}
	}
	res.CloseStdin()
}

// follow prints streamed lines as they arrive until the result completes.
func follow(res *sultan.Result, stdout, stderr io.Writer) {
	var outN, errN int
	flush := func() {
		lines := res.Stdout()
		printLines(stdout, lines[outN:])
		outN = len(lines)
		lines = res.Stderr()
		printLines(stderr, lines[errN:])
		errN = len(lines)
	}
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	for {
		select {
		case <-res.Done():
			res.Wait()
			flush()
			return
		case <-ticker.C:
			flush()
		}
	}
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
