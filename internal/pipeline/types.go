// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marcelocantos/sultan/internal/shellerr"
)

// Shell operators joining nodes.
const (
	OpPipe Operator = "|"
	OpAnd  Operator = "&&"
	OpOr   Operator = "||"
)

// Node is one atomic unit of a pipeline: an *Executable, an Operator or a
// *Redirect.
type Node interface {
	String() string
	// joinsTight reports whether the node is joined to its neighbours with
	// a single space instead of "; ".
	joinsTight() bool
}

// Executable is a command name with options and positional arguments.
type Executable struct {
	Name    string
	Args    []string
	Options map[string]string
}

var _ Node = (*Executable)(nil)

// CommandOption modifies an Executable under construction.
type CommandOption func(*Executable) error

// NewExecutable builds an Executable, applying opts in order.
func NewExecutable(name string, args []string, opts ...CommandOption) (*Executable, error) {
	e := &Executable{Name: name, Args: append([]string(nil), args...)}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Where qualifies the command with dir. Both dir and dir/name must exist,
// and dir/name must be executable.
func Where(dir string) CommandOption {
	return func(e *Executable) error {
		if _, err := os.Stat(dir); err != nil {
			return shellerr.NotFound("the value for where (%s), for %q does not exist", dir, e.Name)
		}
		path := filepath.Join(dir, e.Name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.Mode().Perm()&0111 == 0 {
			return shellerr.NotFound("command %q does not exist in %q", path, dir)
		}
		e.Name = path
		return nil
	}
}

// Sudo prefixes this command alone with "sudo ".
func Sudo() CommandOption {
	return func(e *Executable) error {
		e.Name = "sudo " + e.Name
		return nil
	}
}

// Opt adds a keyed option. Single-character keys render as -k=v, longer
// keys as --key=v.
func Opt(key, value string) CommandOption {
	return func(e *Executable) error {
		if key == "" {
			return shellerr.InvalidArgument("option for %q has an empty key", e.Name)
		}
		if e.Options == nil {
			e.Options = make(map[string]string)
		}
		e.Options[key] = value
		return nil
	}
}

func (e *Executable) String() string {
	var b strings.Builder
	b.WriteString(e.Name)

	if len(e.Options) > 0 {
		keys := make([]string, 0, len(e.Options))
		for k := range e.Options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		opts := make([]string, 0, len(keys))
		for _, k := range keys {
			dash := "--"
			if len(k) == 1 {
				dash = "-"
			}
			opts = append(opts, dash+k+"="+e.Options[k])
		}
		if s := strings.TrimSpace(strings.Join(opts, " ")); s != "" {
			b.WriteString(" " + s)
		}
	}

	if s := strings.TrimSpace(strings.Join(e.Args, " ")); s != "" {
		b.WriteString(" " + s)
	}
	return b.String()
}

func (e *Executable) joinsTight() bool { return false }

// Operator is one of "|", "&&" or "||".
type Operator string

var _ Node = Operator("")

func (o Operator) String() string { return string(o) }

func (o Operator) joinsTight() bool { return true }

// Redirect sends stdout, stderr or both to Target.
type Redirect struct {
	Descriptor string // "1>", "2>>", "&>", ...
	Target     string
	Append     bool
}

var _ Node = (*Redirect)(nil)

// NewRedirect builds a Redirect. At least one of stdout and stderr must be
// requested.
func NewRedirect(target string, stdout, stderr, appendMode bool) (*Redirect, error) {
	var fd string
	switch {
	case stdout && stderr:
		fd = "&"
	case stdout:
		fd = "1"
	case stderr:
		fd = "2"
	default:
		return nil, shellerr.InvalidArgument("redirect to %q needs stdout, stderr or both", target)
	}
	desc := fd + ">"
	if appendMode {
		desc += ">"
	}
	return &Redirect{Descriptor: desc, Target: target, Append: appendMode}, nil
}

func (r *Redirect) String() string {
	return r.Descriptor + " " + r.Target
}

func (r *Redirect) joinsTight() bool { return true }
