// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package execctx holds the layered execution parameters applied when a
// pipeline is serialized: working directory, privilege escalation, remote
// host, sourced file and environment overrides.
package execctx

import (
	"fmt"
	"os"
	"os/user"
	"sort"
	"strconv"
	"strings"

	"github.com/marcelocantos/sultan/internal/shellerr"
)

// Context is an immutable snapshot of execution parameters. Copy it by
// value; Env is treated as read-only once the Context is built.
type Context struct {
	Cwd        string
	Sudo       bool
	User       string
	Hostname   string
	SSHOptions string
	Src        string
	Env        map[string]string
	Executable string
	Logging    bool
}

// SSHOptions are the ssh flags rendered into Context.SSHOptions.
type SSHOptions struct {
	IdentityFile string
	Port         int
}

// String renders the options in fixed order: -i first, then -p.
func (o SSHOptions) String() string {
	var parts []string
	if o.IdentityFile != "" {
		parts = append(parts, "-i", o.IdentityFile)
	}
	if o.Port != 0 {
		parts = append(parts, "-p", strconv.Itoa(o.Port))
	}
	return strings.Join(parts, " ")
}

// Validate reports a configuration error for an out-of-range port.
func (o SSHOptions) Validate() error {
	if o.Port < 0 || o.Port > 65535 {
		return shellerr.Configuration("ssh port %d is out of range", o.Port)
	}
	return nil
}

// Options are the inputs to Load. Zero values mean "not set"; Logging is a
// pointer so that an unset value can default to on.
type Options struct {
	Cwd        string
	Sudo       bool
	User       string
	Hostname   string
	SSH        SSHOptions
	Src        string
	Env        map[string]string
	Executable string
	Logging    *bool
}

// Load validates opts and builds a Context. User defaults to the invoking
// identity; Src and Executable must exist when set.
func Load(opts Options) (Context, error) {
	if err := opts.SSH.Validate(); err != nil {
		return Context{}, err
	}
	if opts.Src != "" {
		if _, err := os.Stat(opts.Src); err != nil {
			return Context{}, shellerr.Configuration("the source file provided (%s) does not exist", opts.Src)
		}
	}
	if opts.Executable != "" {
		if _, err := os.Stat(opts.Executable); err != nil {
			return Context{}, shellerr.Configuration("the executable provided (%s) does not exist", opts.Executable)
		}
	}

	ctx := Context{
		Cwd:        opts.Cwd,
		Sudo:       opts.Sudo,
		User:       opts.User,
		Hostname:   opts.Hostname,
		SSHOptions: opts.SSH.String(),
		Src:        opts.Src,
		Executable: opts.Executable,
		Logging:    true,
	}
	if ctx.User == "" {
		ctx.User = CurrentUser()
	}
	if opts.Logging != nil {
		ctx.Logging = *opts.Logging
	}
	if len(opts.Env) > 0 {
		ctx.Env = make(map[string]string, len(opts.Env))
		for k, v := range opts.Env {
			ctx.Env[k] = v
		}
	}
	return ctx, nil
}

// CurrentUser returns the login name of the invoking identity.
func CurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return os.Getenv("LOGNAME")
}

// Field is one name/value pair of the debug dump.
type Field struct {
	Name  string
	Value string
}

// Fields returns the debug dump of c in its fixed order.
func (c Context) Fields() []Field {
	return []Field{
		{"cwd", c.Cwd},
		{"sudo", strconv.FormatBool(c.Sudo)},
		{"user", c.User},
		{"hostname", c.Hostname},
		{"env", formatEnv(c.Env)},
		{"logging", strconv.FormatBool(c.Logging)},
		{"executable", c.Executable},
		{"ssh_config", c.SSHOptions},
		{"src", c.Src},
	}
}

// Environ returns base overlaid with the Context's overrides, sorted by key.
// A nil Env returns nil so that the child inherits the caller's environment.
func (c Context) Environ(base []string) []string {
	if len(c.Env) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(c.Env))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		merged[k] = v
	}
	for k, v := range c.Env {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}

func formatEnv(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return strings.Join(parts, " ")
}
