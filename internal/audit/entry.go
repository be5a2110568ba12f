// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package audit

import "time"

// Entry is a single audit log record as stored on disk.
type Entry struct {
	Seq       uint64    `json:"seq"`
	Time      time.Time `json:"ts"`
	PrevHash  string    `json:"prev_hash"`
	Command   string    `json:"command"`             // serialized shell line
	Host      string    `json:"host,omitempty"`      // ssh target, empty for local
	User      string    `json:"user"`                // effective user
	Sudo      bool      `json:"sudo,omitempty"`      // context-level escalation
	Streaming bool      `json:"streaming,omitempty"` // streaming mode
	ExitCode  int       `json:"exit_code"`           // -1 when never spawned
	Error     string    `json:"error,omitempty"`     // escalation or spawn error
	Duration  float64   `json:"duration_ms"`
	Cwd       string    `json:"cwd,omitempty"`
	Hash      string    `json:"hash"` // SHA-256 of this entry with Hash empty
}

// Record carries the details of one execution for Logger.Log.
type Record struct {
	Command   string
	Host      string
	User      string
	Sudo      bool
	Streaming bool
	ExitCode  int
	Err       error
	Duration  time.Duration
	Cwd       string
}

// entry fills the execution fields of an Entry; the chain fields are
// left to the Logger.
func (r Record) entry() Entry {
	e := Entry{
		Command:   r.Command,
		Host:      r.Host,
		User:      r.User,
		Sudo:      r.Sudo,
		Streaming: r.Streaming,
		ExitCode:  r.ExitCode,
		Duration:  float64(r.Duration.Microseconds()) / 1000,
		Cwd:       r.Cwd,
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	return e
}
