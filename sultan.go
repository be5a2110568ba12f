// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package sultan builds shell command lines from chained calls and runs
// them, locally or over ssh, with optional privilege escalation.
//
//	b, err := sultan.Load(sultan.ContextOptions{Cwd: "/tmp", Sudo: true})
//	if err != nil { ... }
//	scope, err := b.Enter()
//	if err != nil { ... }
//	defer scope.Close()
//	res, err := b.Command("ls", "-lah").Pipe().Command("grep", "log").Run(ctx)
package sultan

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/marcelocantos/sultan/internal/audit"
	"github.com/marcelocantos/sultan/internal/config"
	"github.com/marcelocantos/sultan/internal/echo"
	"github.com/marcelocantos/sultan/internal/execctx"
	"github.com/marcelocantos/sultan/internal/pipeline"
	"github.com/marcelocantos/sultan/internal/runner"
	"github.com/marcelocantos/sultan/internal/shellerr"
)

// Aliases for the types that appear in the public API.
type (
	ContextOptions = execctx.Options
	SSHOptions     = execctx.SSHOptions
	Context        = execctx.Context
	Scope          = execctx.Scope
	Result         = runner.Result
	State          = runner.State
	CommandOption  = pipeline.CommandOption
)

// Result states.
const (
	Running  = runner.Running
	Complete = runner.Complete
)

// Where qualifies a command with the directory it must live in.
func Where(dir string) CommandOption { return pipeline.Where(dir) }

// Sudo prefixes a single command with sudo.
func Sudo() CommandOption { return pipeline.Sudo() }

// Opt adds a -k=v or --key=v option to a command.
func Opt(key, value string) CommandOption { return pipeline.Opt(key, value) }

// Factory builds a Builder with a Context pushed.
type Factory func(ContextOptions) (*Builder, error)

// NewFactory returns a Factory applying opts to every Builder.
func NewFactory(opts ...Option) Factory {
	return func(ctxOpts ContextOptions) (*Builder, error) {
		return Load(ctxOpts, opts...)
	}
}

// Builder accumulates command nodes and runs them under the active
// Context. The node buffer is cleared after every execution attempt.
// A Builder is safe for concurrent use, though interleaved chains share
// one buffer.
type Builder struct {
	mu    sync.Mutex
	nodes []pipeline.Node
	err   error

	stack   execctx.Stack
	cfg     *config.Config
	log     *echo.Logger
	audit   *audit.Logger
	invoker string
}

// Option configures a Builder.
type Option func(*Builder)

// WithConfig supplies settings. The default is config.DefaultConfig.
func WithConfig(cfg *config.Config) Option {
	return func(b *Builder) { b.cfg = cfg }
}

// WithLogger supplies the echo sink. The default writes to stderr using
// the configured format.
func WithLogger(l *echo.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithAudit records every execution in l.
func WithAudit(l *audit.Logger) Option {
	return func(b *Builder) { b.audit = l }
}

// WithInvoker overrides the identity assumed to be running commands.
func WithInvoker(name string) Option {
	return func(b *Builder) { b.invoker = name }
}

// New returns a Builder with no Context pushed. Commands run under a
// default Context until one is loaded.
func New(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.cfg == nil {
		b.cfg = config.DefaultConfig()
	}
	if b.invoker == "" {
		b.invoker = execctx.CurrentUser()
	}
	if b.log == nil {
		l, err := echo.New(b.cfg.EchoOptions(os.Stderr))
		if err != nil {
			l, _ = echo.New(echo.Options{Out: os.Stderr})
		}
		b.log = l
	}
	return b
}

// Load returns a Builder with a Context built from ctxOpts pushed.
func Load(ctxOpts ContextOptions, opts ...Option) (*Builder, error) {
	b := New(opts...)
	if err := b.Push(ctxOpts); err != nil {
		return nil, err
	}
	return b, nil
}

// Push builds a Context from ctxOpts and makes it active. The user
// defaults to the invoker.
func (b *Builder) Push(ctxOpts ContextOptions) error {
	if ctxOpts.User == "" {
		ctxOpts.User = b.invoker
	}
	ctx, err := execctx.Load(ctxOpts)
	if err != nil {
		return err
	}
	b.stack.Push(ctx)
	return nil
}

// Enter opens a scope over the active Context; closing it pops that
// Context. It fails with a context misuse error if none was pushed.
func (b *Builder) Enter() (*Scope, error) {
	return b.stack.Enter()
}

// Within runs fn inside a scope, popping the Context however fn returns.
func (b *Builder) Within(fn func(*Builder) error) error {
	scope, err := b.Enter()
	if err != nil {
		return err
	}
	defer scope.Close()
	return fn(b)
}

// Context returns the active Context, or a default one for the invoker.
func (b *Builder) Context() Context {
	if ctx, ok := b.stack.Top(); ok {
		return ctx
	}
	return execctx.Context{User: b.invoker, Logging: true}
}

// Depth returns the number of pushed Contexts.
func (b *Builder) Depth() int {
	return b.stack.Len()
}

// Invoker returns the identity assumed to be running commands.
func (b *Builder) Invoker() string {
	return b.invoker
}

// Logger returns the echo sink.
func (b *Builder) Logger() *echo.Logger {
	return b.log
}

func (b *Builder) add(n pipeline.Node, err error) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b
	}
	if err != nil {
		b.err = err
		return b
	}
	b.nodes = append(b.nodes, n)
	return b
}

// Command appends an executable with positional arguments.
func (b *Builder) Command(name string, args ...string) *Builder {
	return b.CommandWith(name, args)
}

// CommandWith appends an executable with options such as pipeline.Where,
// pipeline.Sudo or pipeline.Opt. A failing option is recorded and
// returned by Err and Run.
func (b *Builder) CommandWith(name string, args []string, opts ...pipeline.CommandOption) *Builder {
	e, err := pipeline.NewExecutable(name, args, opts...)
	return b.add(e, err)
}

// Append adds already-built nodes, such as those from pipeline.Parse.
func (b *Builder) Append(nodes ...pipeline.Node) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.nodes = append(b.nodes, nodes...)
	}
	return b
}

// Pipe appends "|".
func (b *Builder) Pipe() *Builder { return b.add(pipeline.OpPipe, nil) }

// And appends "&&".
func (b *Builder) And() *Builder { return b.add(pipeline.OpAnd, nil) }

// Or appends "||".
func (b *Builder) Or() *Builder { return b.add(pipeline.OpOr, nil) }

// Redirect appends a redirect of stdout, stderr or both to target.
func (b *Builder) Redirect(target string, stdout, stderr, appendMode bool) *Builder {
	r, err := pipeline.NewRedirect(target, stdout, stderr, appendMode)
	return b.add(r, err)
}

// Err returns the first error recorded while building the chain.
func (b *Builder) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// String serializes the buffered nodes under the active Context.
func (b *Builder) String() string {
	b.mu.Lock()
	nodes := append([]pipeline.Node(nil), b.nodes...)
	b.mu.Unlock()
	return pipeline.Serialize(nodes, b.Context(), b.invoker)
}

// Spit logs the serialized line without running it, subject to the active
// Context's logging flag.
func (b *Builder) Spit() *Builder {
	b.log.Scoped(b.Context().Logging).Log(b.String())
	return b
}

// Clear drops the buffered nodes and any recorded error.
func (b *Builder) Clear() *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes = nil
	b.err = nil
	return b
}

// take empties the buffer, returning what it held.
func (b *Builder) take() ([]pipeline.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	nodes, err := b.nodes, b.err
	b.nodes, b.err = nil, nil
	return nodes, err
}

// RunOption adjusts a single execution.
type RunOption func(*runOptions)

type runOptions struct {
	halt      bool
	quiet     bool
	streaming bool
}

// Halt overrides the configured halt_on_nonzero policy.
func Halt(on bool) RunOption {
	return func(o *runOptions) { o.halt = on }
}

// Quiet suppresses the command echo before execution.
func Quiet() RunOption {
	return func(o *runOptions) { o.quiet = true }
}

// Streaming returns a Running result immediately; see runner.Stream.
func Streaming() RunOption {
	return func(o *runOptions) { o.streaming = true }
}

// Run serializes the buffered nodes, clears the buffer and executes the
// line. Build errors are returned before anything is spawned. ctx bounds
// blocking runs; streaming runs end when the child does.
func (b *Builder) Run(ctx context.Context, opts ...RunOption) (*Result, error) {
	ro := runOptions{halt: b.cfg.HaltOnNonzero}
	for _, opt := range opts {
		opt(&ro)
	}

	nodes, err := b.take()
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, shellerr.InvalidArgument("nothing to run")
	}

	ectx := b.Context()
	line := pipeline.Serialize(nodes, ectx, b.invoker)
	log := b.log.Scoped(ectx.Logging)
	if !ro.quiet {
		log.Cmd(line)
	}

	ropts := runner.Options{Context: ectx, Halt: ro.halt, Logger: log}
	start := time.Now()
	if ro.streaming {
		res, err := runner.Stream(line, ropts)
		if err != nil || res.State() == runner.Complete {
			b.record(ectx, res, true, err, time.Since(start))
			return res, err
		}
		go func() {
			werr := res.Wait()
			b.record(ectx, res, true, werr, time.Since(start))
		}()
		return res, nil
	}

	res, err := runner.Run(ctx, line, ropts)
	b.record(ectx, res, false, err, time.Since(start))
	return res, err
}

// Exc parses line into nodes, replacing anything buffered, and runs it.
func (b *Builder) Exc(ctx context.Context, line string, opts ...RunOption) (*Result, error) {
	nodes, err := pipeline.ParseLine(line)
	b.Clear()
	if err != nil {
		return nil, err
	}
	return b.Append(nodes...).Run(ctx, opts...)
}

func (b *Builder) record(ectx execctx.Context, res *runner.Result, streaming bool, err error, d time.Duration) {
	if b.audit == nil || res == nil {
		return
	}
	if err == nil {
		err = res.Failure()
	}
	rec := audit.Record{
		Command:   res.Command,
		Host:      ectx.Hostname,
		User:      ectx.User,
		Sudo:      ectx.Sudo,
		Streaming: streaming,
		ExitCode:  res.RC(),
		Err:       err,
		Duration:  d,
		Cwd:       ectx.Cwd,
	}
	if aerr := b.audit.Log(rec); aerr != nil {
		b.log.Warnf("audit: %v", aerr)
	}
}
