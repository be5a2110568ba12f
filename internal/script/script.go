// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package script runs Starlark recipes against the sultan builder.
//
// A recipe sees one predeclared module:
//
//	s = sultan.context(cwd = "/tmp", sudo = True)
//	r = s.cmd("ls", "-lah").pipe().cmd("grep", "log").run(halt = False)
//	if not r.success:
//	    print("\n".join(r.stderr))
package script

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/marcelocantos/sultan"
)

// Options configure a recipe run.
type Options struct {
	// Factory builds the Builder behind each sultan.context call.
	Factory sultan.Factory
	// Stdout receives print output. Defaults to os.Stdout.
	Stdout io.Writer
	// Context bounds blocking runs. Defaults to context.Background.
	Context context.Context
}

// Error is a failed recipe. Its message is the Starlark backtrace; the
// cause, such as a *shellerr.ExitError from a halting run, stays
// reachable through errors.As.
type Error struct {
	*starlark.EvalError
}

func (e *Error) Error() string { return e.Backtrace() }

func (e *Error) Unwrap() error { return e.EvalError }

// RunFile executes a recipe. src may be nil, in which case filename is
// read from disk.
func RunFile(filename string, src any, opts Options) error {
	if opts.Factory == nil {
		return errors.New("script: no builder factory")
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(opts.Stdout, msg)
		},
	}
	predeclared := starlark.StringDict{
		"sultan": newModule(opts),
	}
	_, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, src, predeclared)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return &Error{EvalError: evalErr}
		}
		return err
	}
	return nil
}

func newModule(opts Options) *starlarkstruct.Module {
	newBuilder := func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("%s: unexpected positional arguments", fn.Name())
		}
		ctxOpts, err := contextOptions(kwargs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name(), err)
		}
		b, err := opts.Factory(ctxOpts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name(), err)
		}
		return &builder{b: b, ctx: opts.Context}, nil
	}
	return &starlarkstruct.Module{
		Name: "sultan",
		Members: starlark.StringDict{
			"context": starlark.NewBuiltin("context", newBuilder),
		},
	}
}

// contextOptions maps context(**kwargs) onto Context options.
func contextOptions(kwargs []starlark.Tuple) (sultan.ContextOptions, error) {
	var opts sultan.ContextOptions
	for _, kv := range kwargs {
		key := string(kv[0].(starlark.String))
		val := kv[1]
		var err error
		switch key {
		case "cwd":
			opts.Cwd, err = asString(key, val)
		case "user":
			opts.User, err = asString(key, val)
		case "hostname":
			opts.Hostname, err = asString(key, val)
		case "src":
			opts.Src, err = asString(key, val)
		case "executable":
			opts.Executable, err = asString(key, val)
		case "identity_file":
			opts.SSH.IdentityFile, err = asString(key, val)
		case "sudo":
			opts.Sudo = bool(val.Truth())
		case "logging":
			on := bool(val.Truth())
			opts.Logging = &on
		case "port":
			err = starlark.AsInt(val, &opts.SSH.Port)
		case "env":
			opts.Env, err = asEnv(val)
		default:
			err = fmt.Errorf("unknown context option %q", key)
		}
		if err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func asString(key string, v starlark.Value) (string, error) {
	s, ok := starlark.AsString(v)
	if !ok {
		return "", fmt.Errorf("%s: got %s, want string", key, v.Type())
	}
	return s, nil
}

func asEnv(v starlark.Value) (map[string]string, error) {
	d, ok := v.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("env: got %s, want dict", v.Type())
	}
	env := make(map[string]string, d.Len())
	for _, item := range d.Items() {
		k, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("env: key %s is not a string", item[0])
		}
		env[k] = str(item[1])
	}
	return env, nil
}

// str renders a value the way a command argument should see it.
func str(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}
