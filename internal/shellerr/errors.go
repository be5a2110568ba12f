// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package shellerr defines the error kinds shared by the builder, the
// serializer and the process result engine.
package shellerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error kinds. Match with errors.Is; details are attached with errors.Wrapf.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrContextMisuse   = errors.New("context misuse")
	ErrSpawnFailure    = errors.New("spawn failure")
	ErrNonZeroExit     = errors.New("non-zero exit")
)

// ExitError reports a command that ran to completion with a non-zero
// return code.
type ExitError struct {
	Code    int
	Command string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q returned non-zero exit status %d", e.Command, e.Code)
}

// Is makes errors.Is(err, ErrNonZeroExit) hold for any *ExitError.
func (e *ExitError) Is(target error) bool {
	return target == ErrNonZeroExit
}

// Configuration wraps ErrConfiguration with a formatted message.
func Configuration(format string, args ...any) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

// InvalidArgument wraps ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// ContextMisuse wraps ErrContextMisuse with a formatted message.
func ContextMisuse(format string, args ...any) error {
	return errors.Wrapf(ErrContextMisuse, format, args...)
}

// spawnError keeps both the spawn sentinel and the OS cause reachable.
type spawnError struct {
	cause   error
	command string
}

func (e *spawnError) Error() string {
	return fmt.Sprintf("unable to run %q: %v", e.command, e.cause)
}

func (e *spawnError) Unwrap() []error {
	return []error{ErrSpawnFailure, e.cause}
}

// SpawnFailure records that the OS could not start command. The returned
// error carries a stack trace and matches both ErrSpawnFailure and cause.
func SpawnFailure(cause error, command string) error {
	return errors.WithStack(&spawnError{cause: cause, command: command})
}

// Lines renders err with its stack trace (when one was recorded) as a
// sequence of lines for the traceback section of a diagnostic report.
func Lines(err error) []string {
	if err == nil {
		return nil
	}
	text := strings.TrimSpace(fmt.Sprintf("%+v", err))
	return strings.Split(text, "\n")
}
