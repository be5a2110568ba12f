// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package script

import (
	"context"
	"fmt"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/marcelocantos/sultan"
)

// builder exposes a *sultan.Builder to Starlark. Chain methods return the
// receiver.
type builder struct {
	b   *sultan.Builder
	ctx context.Context
}

var (
	_ starlark.Value    = (*builder)(nil)
	_ starlark.HasAttrs = (*builder)(nil)
)

type method func(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

var methods = map[string]method{
	"cmd":      builderCmd,
	"pipe":     builderPipe,
	"and_":     builderAnd,
	"or_":      builderOr,
	"redirect": builderRedirect,
	"exc":      builderExc,
	"run":      builderRun,
	"string":   builderString,
	"clear":    builderClear,
	"spit":     builderSpit,
}

func (b *builder) String() string        { return fmt.Sprintf("<sultan.builder %q>", b.b.String()) }
func (b *builder) Type() string          { return "sultan.builder" }
func (b *builder) Freeze()               {}
func (b *builder) Truth() starlark.Bool  { return starlark.True }
func (b *builder) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", b.Type()) }

func (b *builder) Attr(name string) (starlark.Value, error) {
	m, ok := methods[name]
	if !ok {
		return nil, nil
	}
	impl := func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return m(fn.Receiver().(*builder), fn, args, kwargs)
	}
	return starlark.NewBuiltin(name, impl).BindReceiver(b), nil
}

func (b *builder) AttrNames() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cmd(name, *args, where=None, sudo=False, **opts)
func builderCmd(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing command name", fn.Name())
	}
	name, ok := starlark.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: command name must be a string, got %s", fn.Name(), args[0].Type())
	}
	positional := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		positional = append(positional, str(a))
	}

	var opts []sultan.CommandOption
	for _, kv := range kwargs {
		key := string(kv[0].(starlark.String))
		switch key {
		case "where":
			dir, err := asString(key, kv[1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fn.Name(), err)
			}
			opts = append(opts, sultan.Where(dir))
		case "sudo":
			if kv[1].Truth() {
				opts = append(opts, sultan.Sudo())
			}
		default:
			opts = append(opts, sultan.Opt(key, str(kv[1])))
		}
	}
	b.b.CommandWith(name, positional, opts...)
	if err := b.b.Err(); err != nil {
		b.b.Clear()
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	return b, nil
}

func builderPipe(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	b.b.Pipe()
	return b, nil
}

func builderAnd(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	b.b.And()
	return b, nil
}

func builderOr(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	b.b.Or()
	return b, nil
}

// redirect(target, stdout=True, stderr=False, append=False)
func builderRedirect(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var target string
	stdout, stderr, appendMode := true, false, false
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"target", &target, "stdout?", &stdout, "stderr?", &stderr, "append?", &appendMode); err != nil {
		return nil, err
	}
	b.b.Redirect(target, stdout, stderr, appendMode)
	if err := b.b.Err(); err != nil {
		b.b.Clear()
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	return b, nil
}

func builderString(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.String(b.b.String()), nil
}

func builderClear(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	b.b.Clear()
	return b, nil
}

func builderSpit(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	b.b.Spit()
	return b, nil
}

// runArgs are the keyword arguments shared by run and exc.
type runArgs struct {
	halt   starlark.Value
	stream bool
	quiet  bool
	input  starlark.Value
}

// streaming reports whether the run needs a live stdin.
func (ra *runArgs) streaming() bool {
	return ra.stream || ra.input != nil && ra.input != starlark.None
}

func (ra *runArgs) options() []sultan.RunOption {
	var opts []sultan.RunOption
	if ra.halt != nil && ra.halt != starlark.None {
		opts = append(opts, sultan.Halt(bool(ra.halt.Truth())))
	}
	if ra.quiet {
		opts = append(opts, sultan.Quiet())
	}
	if ra.streaming() {
		opts = append(opts, sultan.Streaming())
	}
	return opts
}

func (ra *runArgs) lines() ([]string, error) {
	if ra.input == nil || ra.input == starlark.None {
		return nil, nil
	}
	if s, ok := starlark.AsString(ra.input); ok {
		return []string{s}, nil
	}
	iter := starlark.Iterate(ra.input)
	if iter == nil {
		return nil, fmt.Errorf("input: got %s, want string or list", ra.input.Type())
	}
	defer iter.Done()
	var lines []string
	var v starlark.Value
	for iter.Next(&v) {
		lines = append(lines, str(v))
	}
	return lines, nil
}

// run(halt=None, stream=False, quiet=False, input=None)
func builderRun(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ra runArgs
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"halt?", &ra.halt, "stream?", &ra.stream, "quiet?", &ra.quiet, "input?", &ra.input); err != nil {
		return nil, err
	}
	return b.execute(fn, &ra, func(opts []sultan.RunOption) (*sultan.Result, error) {
		return b.b.Run(b.ctx, opts...)
	})
}

// exc(line, halt=None, stream=False, quiet=False, input=None)
func builderExc(b *builder, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var line string
	var ra runArgs
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"line", &line, "halt?", &ra.halt, "stream?", &ra.stream, "quiet?", &ra.quiet, "input?", &ra.input); err != nil {
		return nil, err
	}
	return b.execute(fn, &ra, func(opts []sultan.RunOption) (*sultan.Result, error) {
		return b.b.Exc(b.ctx, line, opts...)
	})
}

func (b *builder) execute(fn *starlark.Builtin, ra *runArgs, run func([]sultan.RunOption) (*sultan.Result, error)) (starlark.Value, error) {
	opts := ra.options()
	lines, err := ra.lines()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}

	res, err := run(opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	if ra.streaming() && res.State() != sultan.Complete {
		for _, l := range lines {
			if res.Write(l) != nil {
				break
			}
		}
		res.CloseStdin()
		if err := res.Wait(); err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name(), err)
		}
	}
	return resultStruct(res), nil
}

func resultStruct(res *sultan.Result) starlark.Value {
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"stdout":  stringList(res.Stdout()),
		"stderr":  stringList(res.Stderr()),
		"rc":      starlark.MakeInt(res.RC()),
		"success": starlark.Bool(res.IsSuccess()),
	})
}

func stringList(lines []string) *starlark.List {
	vals := make([]starlark.Value, len(lines))
	for i, l := range lines {
		vals[i] = starlark.String(l)
	}
	return starlark.NewList(vals)
}
