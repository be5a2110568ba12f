// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package runner

import "strings"

var rule = strings.Repeat("-", 100)

// Section header names.
const (
	SectionTraceback = "TRACEBACK"
	SectionStdout    = "STDOUT"
	SectionStderr    = "STDERR"
)

// Report writes the diagnostic report to log: the traceback (when a
// failure was captured), stdout, stderr, then the Context field dump.
func (r *Result) Report(log Logger) {
	r.PrintTraceback(log, false)
	r.PrintStdout(log, true)
	r.PrintStderr(log, true)
	for _, f := range r.ctx.Fields() {
		log.Debugf("%s: %s", f.Name, f.Value)
	}
}

// PrintStdout writes the stdout section at info level. Empty output is
// skipped unless always is set.
func (r *Result) PrintStdout(log Logger, always bool) {
	if lines := r.Stdout(); len(lines) > 0 || always {
		section(log.Infof, SectionStdout, lines)
	}
}

// PrintStderr writes the stderr section at critical level.
func (r *Result) PrintStderr(log Logger, always bool) {
	if lines := r.Stderr(); len(lines) > 0 || always {
		section(log.Criticalf, SectionStderr, lines)
	}
}

// PrintTraceback writes the traceback section at critical level.
func (r *Result) PrintTraceback(log Logger, always bool) {
	if lines := r.Traceback(); len(lines) > 0 || always {
		section(log.Criticalf, SectionTraceback, lines)
	}
}

func section(logf func(string, ...any), name string, lines []string) {
	logf("%s", "--{ "+name+" }"+rule)
	for _, l := range lines {
		logf("| %s", l)
	}
	logf("%s", rule)
}
