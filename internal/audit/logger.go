// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package audit keeps an append-only, hash-chained JSONL record of every
// command line sultan executes.
package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const genesisInput = "sultan-genesis"

// maxEntrySize bounds a single JSONL line. Command lines are short but
// error text from a failed spawn can run long.
const maxEntrySize = 1 << 20

// Logger appends Records to the log, chaining each entry to the hash of
// the one before it. It is safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	path     string
	seq      uint64
	prevHash string
	now      func() time.Time
}

// NewLogger opens or creates the log at path and resumes the chain from
// its last entry.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "create audit dir")
	}
	l := &Logger{path: path, prevHash: genesisHash(), now: time.Now}

	lines, err := readLines(path)
	if err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, err
	}
	if n := len(lines); n > 0 {
		var last Entry
		if err := json.Unmarshal(lines[n-1], &last); err != nil {
			return nil, errors.Wrapf(err, "resume %s: last entry", path)
		}
		l.seq, l.prevHash = last.Seq, last.Hash
	}
	return l, nil
}

// Log appends rec. The chain advances only once the entry is written.
func (l *Logger) Log(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := rec.entry()
	e.Seq = l.seq + 1
	e.Time = l.now().UTC()
	e.PrevHash = l.prevHash
	e.Hash = computeHash(e)

	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal audit entry")
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return errors.Wrap(err, "open audit log")
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "write audit entry")
	}

	l.seq, l.prevHash = e.Seq, e.Hash
	return nil
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

func genesisHash() string {
	return hexSum([]byte(genesisInput))
}

// computeHash hashes e with its Hash field cleared.
func computeHash(e Entry) string {
	e.Hash = ""
	data, _ := json.Marshal(e)
	return hexSum(data)
}

func hexSum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// readLines returns the non-blank lines of the log at path.
func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "read audit log")
	}
	defer f.Close()

	var lines [][]byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxEntrySize)
	for sc.Scan() {
		if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
			lines = append(lines, append([]byte(nil), line...))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan audit log")
	}
	return lines, nil
}
