// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package execctx

import (
	"sync"

	"github.com/marcelocantos/sultan/internal/shellerr"
)

// Stack is a LIFO of Contexts; only the top is active.
type Stack struct {
	mu     sync.Mutex
	frames []Context
}

// Push makes c the active Context.
func (s *Stack) Push(c Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, c)
}

// Pop removes and returns the active Context.
func (s *Stack) Pop() (Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Context{}, false
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top, true
}

// Top returns the active Context without removing it.
func (s *Stack) Top() (Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Context{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Len returns the number of pushed Contexts.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Scope is a guard over the Context active when it was entered. Close pops
// that Context; callers defer it so the pop happens on every exit path.
type Scope struct {
	stack *Stack
	ctx   Context
	once  sync.Once
}

// Enter opens a scope over the active Context. It fails with a context
// misuse error when nothing has been pushed.
func (s *Stack) Enter() (*Scope, error) {
	top, ok := s.Top()
	if !ok {
		return nil, shellerr.ContextMisuse("scope entered without a context; push one with Load first")
	}
	return &Scope{stack: s, ctx: top}, nil
}

// Context returns the Context the scope was entered with.
func (sc *Scope) Context() Context {
	return sc.ctx
}

// Close pops the scope's Context. Calling it more than once is a no-op.
func (sc *Scope) Close() error {
	sc.once.Do(func() {
		sc.stack.Pop()
	})
	return nil
}
