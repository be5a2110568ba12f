// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package execctx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/sultan/internal/shellerr"
)

func TestLoadDefaults(t *testing.T) {
	ctx, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, CurrentUser(), ctx.User)
	assert.True(t, ctx.Logging)
	assert.Empty(t, ctx.SSHOptions)
	assert.Nil(t, ctx.Env)
}

func TestLoadLoggingOff(t *testing.T) {
	off := false
	ctx, err := Load(Options{Logging: &off})
	require.NoError(t, err)
	assert.False(t, ctx.Logging)
}

func TestLoadMissingSource(t *testing.T) {
	_, err := Load(Options{Src: filepath.Join(t.TempDir(), "missing.sh")})
	require.Error(t, err)
	assert.ErrorIs(t, err, shellerr.ErrConfiguration)
	assert.Contains(t, err.Error(), "missing.sh")
}

func TestLoadMissingExecutable(t *testing.T) {
	_, err := Load(Options{Executable: "/no/such/shell"})
	assert.ErrorIs(t, err, shellerr.ErrConfiguration)
}

func TestLoadExistingSource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "env.sh")
	require.NoError(t, os.WriteFile(src, []byte("export A=1\n"), 0600))

	ctx, err := Load(Options{Src: src, Cwd: "/tmp", Env: map[string]string{"A": "1"}})
	require.NoError(t, err)
	assert.Equal(t, src, ctx.Src)
	assert.Equal(t, "/tmp", ctx.Cwd)
	assert.Equal(t, map[string]string{"A": "1"}, ctx.Env)
}

func TestSSHOptions(t *testing.T) {
	tests := []struct {
		name string
		opts SSHOptions
		want string
	}{
		{"empty", SSHOptions{}, ""},
		{"port", SSHOptions{Port: 2345}, "-p 2345"},
		{"identity", SSHOptions{IdentityFile: "~/.ssh/id"}, "-i ~/.ssh/id"},
		{"both", SSHOptions{IdentityFile: "/k", Port: 22}, "-i /k -p 22"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.String())
		})
	}
}

func TestSSHOptionsBadPort(t *testing.T) {
	_, err := Load(Options{SSH: SSHOptions{Port: 70000}})
	assert.ErrorIs(t, err, shellerr.ErrConfiguration)
}

func TestFieldsOrder(t *testing.T) {
	ctx := Context{Cwd: "/tmp", User: "hodor", Env: map[string]string{"B": "2", "A": "1"}}
	var names []string
	for _, f := range ctx.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"cwd", "sudo", "user", "hostname", "env", "logging", "executable", "ssh_config", "src"}, names)
	assert.Equal(t, "A=1 B=2", ctx.Fields()[4].Value)
}

func TestEnviron(t *testing.T) {
	assert.Nil(t, Context{}.Environ([]string{"PATH=/bin"}))

	ctx := Context{Env: map[string]string{"FOO": "bar", "PATH": "/opt/bin"}}
	got := ctx.Environ([]string{"PATH=/bin", "HOME=/root"})
	assert.Equal(t, []string{"FOO=bar", "HOME=/root", "PATH=/opt/bin"}, got)
}
