// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package execctx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/sultan/internal/shellerr"
)

func TestStackLIFO(t *testing.T) {
	var s Stack
	_, ok := s.Top()
	assert.False(t, ok)

	s.Push(Context{Cwd: "/a"})
	s.Push(Context{Cwd: "/b"})
	top, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, "/b", top.Cwd)
	assert.Equal(t, 2, s.Len())

	popped, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, "/b", popped.Cwd)
	top, _ = s.Top()
	assert.Equal(t, "/a", top.Cwd)
}

func TestEnterWithoutPush(t *testing.T) {
	var s Stack
	sc, err := s.Enter()
	assert.Nil(t, sc)
	assert.ErrorIs(t, err, shellerr.ErrContextMisuse)
}

func TestScopeClosePopsOnce(t *testing.T) {
	var s Stack
	s.Push(Context{Cwd: "/outer"})
	s.Push(Context{Cwd: "/inner"})

	sc, err := s.Enter()
	require.NoError(t, err)
	assert.Equal(t, "/inner", sc.Context().Cwd)

	require.NoError(t, sc.Close())
	require.NoError(t, sc.Close())
	assert.Equal(t, 1, s.Len())
	top, _ := s.Top()
	assert.Equal(t, "/outer", top.Cwd)
}

func TestScopeReleasedOnErrorPath(t *testing.T) {
	var s Stack
	s.Push(Context{Cwd: "/tmp"})

	boom := errors.New("boom")
	run := func() (err error) {
		sc, err := s.Enter()
		if err != nil {
			return err
		}
		defer sc.Close()
		return boom
	}
	assert.ErrorIs(t, run(), boom)
	assert.Equal(t, 0, s.Len())
}
