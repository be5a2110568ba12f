// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/sultan"
	"github.com/marcelocantos/sultan/internal/shellerr"
)

// contextFlags are the execution-context flags shared by run, pipe and
// render.
type contextFlags struct {
	cwd        string
	sudo       bool
	user       string
	host       string
	sshPort    int
	identity   string
	src        string
	env        []string
	envFile    string
	executable string

	quiet  bool
	stream bool
	noHalt bool
}

func (f *contextFlags) register(cmd *cobra.Command, runFlags bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.cwd, "cwd", "", "change to this directory before running")
	fs.BoolVar(&f.sudo, "sudo", false, "run with sudo (as --user when it differs from you)")
	fs.StringVarP(&f.user, "user", "u", "", "user to run as (default: you)")
	fs.StringVarP(&f.host, "host", "H", "", "run on this host over ssh")
	fs.IntVarP(&f.sshPort, "ssh-port", "p", 0, "ssh port")
	fs.StringVarP(&f.identity, "ssh-identity", "i", "", "ssh identity file")
	fs.StringVar(&f.src, "src", "", "source this file before running")
	fs.StringArrayVarP(&f.env, "env", "e", nil, "environment override KEY=VALUE (repeatable)")
	fs.StringVar(&f.envFile, "env-file", "", "read environment overrides from a dotenv file")
	fs.StringVar(&f.executable, "executable", "", "shell used to run the line (default /bin/sh)")
	if runFlags {
		fs.BoolVarP(&f.quiet, "quiet", "q", false, "do not echo the command line")
		fs.BoolVar(&f.stream, "stream", false, "stream stdin/stdout/stderr while the command runs")
		fs.BoolVar(&f.noHalt, "no-halt", false, "report the exit status instead of failing on non-zero")
	}
}

// options converts the flags into Context options. --env entries override
// values read from --env-file.
func (f *contextFlags) options() (sultan.ContextOptions, error) {
	opts := sultan.ContextOptions{
		Cwd:        f.cwd,
		Sudo:       f.sudo,
		User:       f.user,
		Hostname:   f.host,
		SSH:        sultan.SSHOptions{IdentityFile: f.identity, Port: f.sshPort},
		Src:        f.src,
		Executable: f.executable,
	}

	env := map[string]string{}
	if f.envFile != "" {
		fileEnv, err := godotenv.Read(f.envFile)
		if err != nil {
			return opts, shellerr.Configuration("env file %s: %v", f.envFile, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for _, kv := range f.env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return opts, shellerr.InvalidArgument("--env %q is not KEY=VALUE", kv)
		}
		env[k] = v
	}
	if len(env) > 0 {
		opts.Env = env
	}
	return opts, nil
}

func (f *contextFlags) runOptions() []sultan.RunOption {
	var opts []sultan.RunOption
	if f.quiet {
		opts = append(opts, sultan.Quiet())
	}
	if f.stream {
		opts = append(opts, sultan.Streaming())
	}
	if f.noHalt {
		opts = append(opts, sultan.Halt(false))
	}
	return opts
}
