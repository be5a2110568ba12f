// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/marcelocantos/sultan/internal/execctx"
	"github.com/marcelocantos/sultan/internal/shellerr"
)

// State is the completion state of a Result.
type State int32

const (
	Running State = iota
	Complete
)

func (s State) String() string {
	if s == Complete {
		return "complete"
	}
	return "running"
}

// ErrStdinClosed is returned by Result.Write once the child's input has
// been closed, or for blocking results that never had one.
var ErrStdinClosed = errors.New("stdin closed")

// Result is the outcome of one execution. Stdout and stderr may grow while
// the Result is Running; the return code and failure are fixed once it is
// Complete.
type Result struct {
	Command string
	ctx     execctx.Context

	stdout lineBuffer
	stderr lineBuffer
	input  *lineQueue

	state   atomic.Int32
	done    chan struct{}
	settled chan struct{}

	// Written once by finish, before state becomes Complete.
	rc      int
	hasRC   bool
	failure error

	// Written once by settle, before settled is closed.
	err error
}

func newResult(line string, ctx execctx.Context) *Result {
	return &Result{
		Command: line,
		ctx:     ctx,
		done:    make(chan struct{}),
		settled: make(chan struct{}),
	}
}

// finish records the child's outcome and makes the Result Complete.
func (r *Result) finish(err error) {
	if code, ok := exitCode(err); ok {
		r.rc, r.hasRC = code, true
	} else {
		r.failure = shellerr.SpawnFailure(err, r.Command)
	}
	if r.state.CompareAndSwap(int32(Running), int32(Complete)) {
		close(r.done)
	}
}

// settle escalates the outcome under opts and unblocks Wait.
func (r *Result) settle(opts Options) error {
	r.err = r.escalate(opts)
	close(r.settled)
	return r.err
}

func (r *Result) escalate(opts Options) error {
	if !opts.Halt {
		return nil
	}
	if r.failure == nil && r.rc == 0 {
		return nil
	}
	if opts.Logger != nil {
		r.Report(opts.Logger)
	}
	if r.failure != nil {
		return r.failure
	}
	return errors.WithStack(&shellerr.ExitError{Code: r.rc, Command: r.Command})
}

// State reports whether the child is still running.
func (r *Result) State() State {
	return State(r.state.Load())
}

// Done is closed when the Result becomes Complete.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the Result is Complete and any escalation has been
// decided, and returns that escalation.
func (r *Result) Wait() error {
	<-r.settled
	return r.err
}

// ReturnCode returns the child's exit status. ok is false while Running or
// when the child was never spawned.
func (r *Result) ReturnCode() (rc int, ok bool) {
	if r.State() != Complete {
		return 0, false
	}
	return r.rc, r.hasRC
}

// RC returns the exit status, or -1 when there is none.
func (r *Result) RC() int {
	if rc, ok := r.ReturnCode(); ok {
		return rc
	}
	return -1
}

// Failure returns the spawn failure, if any.
func (r *Result) Failure() error {
	if r.State() != Complete {
		return nil
	}
	return r.failure
}

// Stdout returns a snapshot of the stdout lines buffered so far.
func (r *Result) Stdout() []string { return r.stdout.snapshot() }

// Stderr returns a snapshot of the stderr lines buffered so far.
func (r *Result) Stderr() []string { return r.stderr.snapshot() }

// IsSuccess reports a zero return code.
func (r *Result) IsSuccess() bool {
	rc, ok := r.ReturnCode()
	return ok && rc == 0
}

// IsFailure is the inverse of IsSuccess.
func (r *Result) IsFailure() bool { return !r.IsSuccess() }

// HasException reports whether a spawn failure was captured.
func (r *Result) HasException() bool { return r.Failure() != nil }

// Traceback renders the captured failure with its stack trace.
func (r *Result) Traceback() []string { return shellerr.Lines(r.Failure()) }

// String joins stdout with newlines.
func (r *Result) String() string {
	return strings.Join(r.Stdout(), "\n")
}

// Write queues line for the child's stdin, appending a newline if absent.
func (r *Result) Write(line string) error {
	if r.input == nil || !r.input.push(line) {
		return ErrStdinClosed
	}
	return nil
}

// CloseStdin ends the child's input once queued lines are written.
func (r *Result) CloseStdin() {
	if r.input != nil {
		r.input.close()
	}
}

type lineBuffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *lineBuffer) append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
}

func (b *lineBuffer) set(lines []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = lines
}

func (b *lineBuffer) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}
