// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Verify walks the log at path and reports the first break in the chain:
// malformed JSON, a sequence gap, a prev_hash that does not match the
// previous entry, or an entry whose hash does not match its contents.
func Verify(path string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}

	prev := Entry{Hash: genesisHash()}
	for i, line := range lines {
		n := i + 1
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return errors.Wrapf(err, "line %d: invalid JSON", n)
		}
		switch {
		case e.Seq != prev.Seq+1:
			return errors.Errorf("line %d: sequence gap: expected %d, got %d", n, prev.Seq+1, e.Seq)
		case e.PrevHash != prev.Hash:
			return errors.Errorf("line %d: prev_hash mismatch: expected %s, got %s", n, short(prev.Hash), short(e.PrevHash))
		}
		if sum := computeHash(e); e.Hash != sum {
			return errors.Errorf("line %d: hash mismatch: expected %s, got %s", n, short(sum), short(e.Hash))
		}
		prev = e
	}
	return nil
}

// Tail returns the last n well-formed entries. n < 0 is treated as 0.
func Tail(path string, n int) ([]Entry, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	n = max(0, min(n, len(lines)))

	entries := make([]Entry, 0, n)
	for _, line := range lines[len(lines)-n:] {
		var e Entry
		if json.Unmarshal(line, &e) == nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func short(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "..."
	}
	return hash
}
