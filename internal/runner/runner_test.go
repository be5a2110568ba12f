// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/sultan/internal/execctx"
	"github.com/marcelocantos/sultan/internal/shellerr"
)

type logLine struct {
	level string
	text  string
}

type recorder struct {
	mu    sync.Mutex
	lines []logLine
}

func (r *recorder) add(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, logLine{level, fmt.Sprintf(format, args...)})
}

func (r *recorder) Debugf(format string, args ...any)    { r.add("debug", format, args...) }
func (r *recorder) Infof(format string, args ...any)     { r.add("info", format, args...) }
func (r *recorder) Criticalf(format string, args ...any) { r.add("critical", format, args...) }

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	for i, l := range r.lines {
		out[i] = l.text
	}
	return out
}

func (r *recorder) level(text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l.text == text {
			return l.level
		}
	}
	return ""
}

func TestRunCapturesOutput(t *testing.T) {
	r, err := Run(context.Background(), "echo one; echo two; echo oops >&2;", Options{Halt: true})
	require.NoError(t, err)
	assert.Equal(t, Complete, r.State())
	assert.Equal(t, []string{"one", "two"}, r.Stdout())
	assert.Equal(t, []string{"oops"}, r.Stderr())
	assert.Equal(t, 0, r.RC())
	assert.True(t, r.IsSuccess())
	assert.False(t, r.HasException())
	assert.Equal(t, "one\ntwo", r.String())
}

func TestRunNoOutput(t *testing.T) {
	r, err := Run(context.Background(), "true;", Options{})
	require.NoError(t, err)
	assert.NotNil(t, r.Stdout())
	assert.Empty(t, r.Stdout())
	assert.Empty(t, r.Stderr())
}

func TestRunNonZeroWithoutHalt(t *testing.T) {
	log := &recorder{}
	r, err := Run(context.Background(), "exit 22;", Options{Logger: log})
	require.NoError(t, err)
	rc, ok := r.ReturnCode()
	require.True(t, ok)
	assert.Equal(t, 22, rc)
	assert.True(t, r.IsFailure())
	assert.False(t, r.IsSuccess())
	assert.Empty(t, log.texts(), "no report without halt")
}

func TestRunNonZeroWithHalt(t *testing.T) {
	log := &recorder{}
	ctx := execctx.Context{User: "arya", Cwd: "/tmp"}
	r, err := Run(context.Background(), "echo out; echo bad >&2; exit 3;", Options{Context: ctx, Halt: true, Logger: log})
	require.Error(t, err)
	assert.ErrorIs(t, err, shellerr.ErrNonZeroExit)

	var exitErr *shellerr.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, r.RC())

	texts := log.texts()
	rule := strings.Repeat("-", 100)
	assert.NotContains(t, texts, "--{ TRACEBACK }"+rule)
	assert.Contains(t, texts, "--{ STDOUT }"+rule)
	assert.Contains(t, texts, "--{ STDERR }"+rule)
	assert.Contains(t, texts, "| out")
	assert.Contains(t, texts, "| bad")
	assert.Contains(t, texts, "cwd: /tmp")
	assert.Contains(t, texts, "user: arya")

	assert.Equal(t, "info", log.level("| out"))
	assert.Equal(t, "critical", log.level("| bad"))
	assert.Equal(t, "debug", log.level("cwd: /tmp"))
}

func TestRunSpawnFailure(t *testing.T) {
	log := &recorder{}
	missing := filepath.Join(t.TempDir(), "no-such-shell")
	opts := Options{Context: execctx.Context{Executable: missing}, Logger: log}

	r, err := Run(context.Background(), "ls;", opts)
	require.NoError(t, err)
	_, ok := r.ReturnCode()
	assert.False(t, ok)
	assert.Equal(t, -1, r.RC())
	assert.True(t, r.HasException())
	assert.ErrorIs(t, r.Failure(), shellerr.ErrSpawnFailure)
	assert.NotEmpty(t, r.Traceback())

	opts.Halt = true
	_, err = Run(context.Background(), "ls;", opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, shellerr.ErrSpawnFailure)
	assert.Contains(t, log.texts(), "--{ TRACEBACK }"+strings.Repeat("-", 100))
}

func TestRunEnvOverlay(t *testing.T) {
	t.Setenv("SULTAN_TEST_BASE", "kept")
	ctx := execctx.Context{Env: map[string]string{"SULTAN_TEST_OVERRIDE": "set"}}
	r, err := Run(context.Background(), `echo "$SULTAN_TEST_BASE $SULTAN_TEST_OVERRIDE";`, Options{Context: ctx, Halt: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"kept set"}, r.Stdout())
}

func TestRunExecutable(t *testing.T) {
	ctx := execctx.Context{Executable: "/bin/sh"}
	r, err := Run(context.Background(), "echo hi;", Options{Context: ctx, Halt: true})
	require.NoError(t, err)
	assert.Equal(t, "hi", r.String())
}

func TestStreamEcho(t *testing.T) {
	r, err := Stream("cat;", Options{Halt: true})
	require.NoError(t, err)

	for _, line := range []string{"alpha", "beta\n", "gamma"} {
		require.NoError(t, r.Write(line))
	}
	r.CloseStdin()

	require.NoError(t, r.Wait())
	assert.Equal(t, Complete, r.State())
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, r.Stdout())
	assert.Equal(t, 0, r.RC())

	assert.ErrorIs(t, r.Write("late"), ErrStdinClosed)
}

func TestStreamOutputBeforeExit(t *testing.T) {
	r, err := Stream("echo ready; read x; echo got $x;", Options{Halt: true})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(r.Stdout()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, Running, r.State())
	_, ok := r.ReturnCode()
	assert.False(t, ok)

	require.NoError(t, r.Write("ping"))
	require.NoError(t, r.Wait())
	assert.Equal(t, []string{"ready", "got ping"}, r.Stdout())
}

func TestStreamSnapshotIsNonDestructive(t *testing.T) {
	r, err := Stream("echo a; echo b;", Options{})
	require.NoError(t, err)
	require.NoError(t, r.Wait())
	assert.Equal(t, r.Stdout(), r.Stdout())

	snap := r.Stdout()
	snap[0] = "changed"
	assert.Equal(t, "a", r.Stdout()[0])
}

func TestStreamStderr(t *testing.T) {
	r, err := Stream("echo e1 >&2; echo e2 >&2;", Options{})
	require.NoError(t, err)
	require.NoError(t, r.Wait())
	assert.Equal(t, []string{"e1", "e2"}, r.Stderr())
	assert.Empty(t, r.Stdout())
}

func TestStreamTrimsLines(t *testing.T) {
	r, err := Stream(`printf '  padded\t \r\nnext\n'; printf ' err \n' >&2;`, Options{})
	require.NoError(t, err)
	require.NoError(t, r.Wait())
	assert.Equal(t, []string{"padded", "next"}, r.Stdout())
	assert.Equal(t, []string{"err"}, r.Stderr())
}

func TestStreamNonZeroHalt(t *testing.T) {
	log := &recorder{}
	r, err := Stream("echo partial; exit 5;", Options{Halt: true, Logger: log})
	require.NoError(t, err)

	err = r.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, shellerr.ErrNonZeroExit)
	assert.Equal(t, 5, r.RC())
	assert.Contains(t, log.texts(), "| partial")

	select {
	case <-r.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestStreamNonZeroNoHalt(t *testing.T) {
	r, err := Stream("exit 7;", Options{})
	require.NoError(t, err)
	require.NoError(t, r.Wait())
	assert.Equal(t, 7, r.RC())
	assert.True(t, r.IsFailure())
}

func TestStreamSpawnFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-shell")
	opts := Options{Context: execctx.Context{Executable: missing}, Halt: true}
	r, err := Stream("ls;", opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, shellerr.ErrSpawnFailure)
	assert.Equal(t, Complete, r.State())
	assert.ErrorIs(t, r.Wait(), shellerr.ErrSpawnFailure)
}

func TestBlockingWriteRejected(t *testing.T) {
	r, err := Run(context.Background(), "true;", Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, r.Write("x"), ErrStdinClosed)
	r.CloseStdin()
}

func TestReportLayout(t *testing.T) {
	r := newResult("false;", execctx.Context{User: "hodor", Sudo: true})
	r.stdout.set([]string{"o1"})
	r.stderr.set([]string{"e1", "e2"})
	r.finish(nil)

	log := &recorder{}
	r.Report(log)

	rule := strings.Repeat("-", 100)
	want := []string{
		"--{ STDOUT }" + rule, "| o1", rule,
		"--{ STDERR }" + rule, "| e1", "| e2", rule,
		"cwd: ", "sudo: true", "user: hodor", "hostname: ", "env: ",
		"logging: false", "executable: ", "ssh_config: ", "src: ",
	}
	assert.Equal(t, want, log.texts())
}

func TestPrintersSkipEmpty(t *testing.T) {
	r := newResult("true;", execctx.Context{})
	r.finish(nil)

	log := &recorder{}
	r.PrintStdout(log, false)
	r.PrintStderr(log, false)
	r.PrintTraceback(log, false)
	assert.Empty(t, log.texts())

	r.PrintStdout(log, true)
	assert.Len(t, log.texts(), 2)
}
