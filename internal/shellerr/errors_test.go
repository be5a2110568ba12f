// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package shellerr

import (
	"os"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
		msg  string
	}{
		{Configuration("port %d", 70000), ErrConfiguration, "port 70000: configuration error"},
		{InvalidArgument("bad %q", "x"), ErrInvalidArgument, `bad "x": invalid argument`},
		{NotFound("missing"), ErrNotFound, "missing: not found"},
		{ContextMisuse("no context"), ErrContextMisuse, "no context: context misuse"},
	}
	for _, c := range cases {
		assert.True(t, errors.Is(c.err, c.kind), c.msg)
		assert.Equal(t, c.msg, c.err.Error())
	}
	assert.False(t, errors.Is(NotFound("x"), ErrConfiguration))
}

func TestExitError(t *testing.T) {
	err := errors.WithStack(&ExitError{Code: 3, Command: "false;"})
	assert.True(t, errors.Is(err, ErrNonZeroExit))

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, `command "false;" returned non-zero exit status 3`, exitErr.Error())
}

func TestSpawnFailure(t *testing.T) {
	err := SpawnFailure(os.ErrNotExist, "nope;")
	assert.True(t, errors.Is(err, ErrSpawnFailure))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), `unable to run "nope;"`)
}

func TestLines(t *testing.T) {
	assert.Nil(t, Lines(nil))

	lines := Lines(SpawnFailure(os.ErrNotExist, "nope;"))
	require.Greater(t, len(lines), 1, "expected a stack trace")
	assert.Contains(t, lines[0], "unable to run")
	assert.Contains(t, strings.Join(lines[1:], "\n"), "TestLines")
}
