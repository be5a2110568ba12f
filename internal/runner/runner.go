// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package runner executes serialized command lines through a shell and
// captures their output, either blocking until the child exits or streaming
// stdin, stdout and stderr while it runs.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/marcelocantos/sultan/internal/execctx"
)

// DefaultShell runs command lines when the Context names no executable.
const DefaultShell = "/bin/sh"

// Logger receives the diagnostic report. *echo.Logger satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Criticalf(format string, args ...any)
}

// Options control one execution.
type Options struct {
	// Context supplies the shell, environment overrides and the field dump
	// of the diagnostic report.
	Context execctx.Context
	// Halt escalates a spawn failure or non-zero exit into a returned error,
	// after emitting the diagnostic report.
	Halt bool
	// Logger receives the report. Nil suppresses it.
	Logger Logger
}

func (o Options) shell() string {
	if o.Context.Executable != "" {
		return o.Context.Executable
	}
	return DefaultShell
}

func (o Options) command(ctx context.Context, line string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, o.shell(), "-c", line)
	cmd.Env = o.Context.Environ(os.Environ())
	return cmd
}

// Run executes line and blocks until the child exits. The returned Result
// is always non-nil and Complete. The error is non-nil only when opts.Halt
// is set and the child could not be spawned or exited non-zero.
func Run(ctx context.Context, line string, opts Options) (*Result, error) {
	r := newResult(line, opts.Context)

	cmd := opts.command(ctx, line)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	r.stdout.set(splitOutput(stdout.String()))
	r.stderr.set(splitOutput(stderr.String()))
	r.finish(err)
	return r, r.settle(opts)
}

// Stream starts line and returns immediately with a Running Result. Lines
// sent with Result.Write are fed to the child's stdin; stdout and stderr
// are buffered line by line as they arrive. Result.Wait blocks until the
// child has exited and all streams are drained.
//
// A spawn failure yields a Complete Result; with opts.Halt set it is also
// returned as the error. A non-zero exit is escalated through Result.Wait.
func Stream(line string, opts Options) (*Result, error) {
	r := newResult(line, opts.Context)
	r.input = newLineQueue()

	cmd := opts.command(context.Background(), line)
	p, err := openPipes()
	if err != nil {
		r.finish(err)
		return r, r.settle(opts)
	}
	cmd.Stdin = p.stdinR
	cmd.Stdout = p.stdoutW
	cmd.Stderr = p.stderrW

	if err := cmd.Start(); err != nil {
		p.closeAll()
		r.finish(err)
		return r, r.settle(opts)
	}
	// The child holds its own copies now.
	p.closeChildEnds()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		readLines(p.stdoutR, &r.stdout)
	}()
	go func() {
		defer wg.Done()
		readLines(p.stderrR, &r.stderr)
	}()
	go func() {
		defer wg.Done()
		writeLines(p.stdinW, r.input)
	}()
	go func() {
		err := cmd.Wait()
		r.input.close()
		wg.Wait()
		p.stdoutR.Close()
		p.stderrR.Close()
		r.finish(err)
		r.settle(opts)
	}()
	return r, nil
}

type pipes struct {
	stdinR, stdinW   *os.File
	stdoutR, stdoutW *os.File
	stderrR, stderrW *os.File
}

func openPipes() (*pipes, error) {
	p := &pipes{}
	var err error
	if p.stdinR, p.stdinW, err = os.Pipe(); err != nil {
		return nil, errors.Wrap(err, "stdin pipe")
	}
	if p.stdoutR, p.stdoutW, err = os.Pipe(); err != nil {
		p.closeAll()
		return nil, errors.Wrap(err, "stdout pipe")
	}
	if p.stderrR, p.stderrW, err = os.Pipe(); err != nil {
		p.closeAll()
		return nil, errors.Wrap(err, "stderr pipe")
	}
	return p, nil
}

func (p *pipes) closeChildEnds() {
	for _, f := range []*os.File{p.stdinR, p.stdoutW, p.stderrW} {
		if f != nil {
			f.Close()
		}
	}
}

func (p *pipes) closeAll() {
	p.closeChildEnds()
	for _, f := range []*os.File{p.stdinW, p.stdoutR, p.stderrR} {
		if f != nil {
			f.Close()
		}
	}
}

// readLines appends each line of src to buf until end of stream. EOF on a
// pipe means every writer has closed it, so there is nothing to retry.
func readLines(src io.Reader, buf *lineBuffer) {
	br := bufio.NewReader(src)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			buf.append(strings.TrimSpace(line))
		}
		if err != nil {
			return
		}
	}
}

// writeLines feeds queued lines to dst until the queue is closed and
// drained, then closes dst so the child sees end of input.
func writeLines(dst io.WriteCloser, q *lineQueue) {
	defer dst.Close()
	for {
		line, ok := q.pop()
		if !ok {
			return
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		if _, err := io.WriteString(dst, line); err != nil {
			// Child stopped reading; later writes are rejected.
			q.discard()
			return
		}
	}
}

// splitOutput trims captured output and splits it into lines. No output
// yields an empty, non-nil slice.
func splitOutput(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// exitCode extracts the child's return code from a Wait error.
func exitCode(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
