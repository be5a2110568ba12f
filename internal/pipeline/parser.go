// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"strings"

	"github.com/marcelocantos/sultan/internal/shellerr"
)

// OpSequence ends the current command; adjacent commands are then joined
// with "; " by Join.
const OpSequence = ";"

// redirectOps maps redirect tokens to their (stdout, stderr, append) form.
var redirectOps = map[string]struct{ stdout, stderr, append bool }{
	">":   {true, false, false},
	">>":  {true, false, true},
	"1>":  {true, false, false},
	"1>>": {true, false, true},
	"2>":  {false, true, false},
	"2>>": {false, true, true},
	"&>":  {true, true, false},
	"&>>": {true, true, true},
}

// Parse takes pre-tokenized args (as delivered by the shell) and builds the
// node sequence. "|", "&&" and "||" become operators, ";" ends a command,
// redirect tokens consume the following path, and anything else is a
// command name or one of its arguments.
func Parse(args []string) ([]Node, error) {
	if len(args) == 0 {
		return nil, shellerr.InvalidArgument("empty pipeline")
	}

	var (
		nodes   []Node
		current *Executable
		// afterSeq is set while nothing has followed the last ";".
		afterSeq bool
	)
	flush := func() {
		if current != nil {
			nodes = append(nodes, current)
			current = nil
		}
	}

	for i := 0; i < len(args); i++ {
		tok := args[i]
		if tok == OpSequence {
			if current == nil && (afterSeq || !endsCommand(nodes)) {
				return nil, shellerr.InvalidArgument("empty command before %s", OpSequence)
			}
			flush()
			afterSeq = true
			continue
		}
		afterSeq = false
		if op := toOperator(tok); op != "" {
			flush()
			if len(nodes) == 0 || !endsCommand(nodes) {
				return nil, shellerr.InvalidArgument("empty segment before %s", tok)
			}
			nodes = append(nodes, op)
			continue
		}
		if r, ok := redirectOps[tok]; ok {
			if i+1 >= len(args) {
				return nil, shellerr.InvalidArgument("%s requires a file path", tok)
			}
			flush()
			if !endsCommand(nodes) {
				return nil, shellerr.InvalidArgument("redirect %s has no command", tok)
			}
			i++
			redirect, err := NewRedirect(args[i], r.stdout, r.stderr, r.append)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, redirect)
			continue
		}
		if current == nil {
			current = &Executable{Name: tok}
		} else {
			current.Args = append(current.Args, tok)
		}
	}
	flush()

	if len(nodes) > 0 {
		if _, ok := nodes[len(nodes)-1].(Operator); ok {
			return nil, shellerr.InvalidArgument("empty segment after %s", nodes[len(nodes)-1])
		}
	}
	return nodes, nil
}

// ParseLine splits line on whitespace and parses the fields.
func ParseLine(line string) ([]Node, error) {
	return Parse(strings.Fields(line))
}

// toOperator checks if a token is a joining operator.
func toOperator(token string) Operator {
	switch Operator(token) {
	case OpPipe, OpAnd, OpOr:
		return Operator(token)
	default:
		return ""
	}
}

// endsCommand reports whether the last node can be followed by an operator.
func endsCommand(nodes []Node) bool {
	if len(nodes) == 0 {
		return false
	}
	_, isOp := nodes[len(nodes)-1].(Operator)
	return !isOp
}
