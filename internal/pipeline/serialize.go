// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"strings"

	"github.com/marcelocantos/sultan/internal/execctx"
)

const superuser = "root"

// Serialize renders nodes as one shell line and wraps it in ctx. invoker is
// the identity running the line, used to pick the sudo form.
func Serialize(nodes []Node, ctx execctx.Context, invoker string) string {
	return Wrap(Join(nodes), ctx, invoker)
}

// Join renders nodes with their separators and the terminating ";".
// Adjacent executables are separated by "; ", and anything touching an
// operator or redirect by a single space.
func Join(nodes []Node) string {
	var b strings.Builder
	for i, n := range nodes {
		switch {
		case i == 0:
		case n.joinsTight() || nodes[i-1].joinsTight():
			b.WriteString(" ")
		default:
			b.WriteString("; ")
		}
		b.WriteString(n.String())
	}
	return strings.TrimRight(b.String(), " \t\r\n") + ";"
}

// Wrap applies the context layers to line in fixed order: source, cd,
// sudo, ssh. Each layer wraps everything produced so far.
func Wrap(line string, ctx execctx.Context, invoker string) string {
	out := line

	if ctx.Src != "" {
		out = "source " + ctx.Src + " && " + out
	}
	if ctx.Cwd != "" {
		out = "cd " + ctx.Cwd + " && " + out
	}

	user := ctx.User
	if user == "" {
		user = invoker
	}

	if ctx.Sudo {
		switch {
		case user != invoker:
			out = "sudo su - " + user + " -c '" + out + "'"
		case invoker == superuser:
			out = "su - " + user + " -c '" + out + "'"
		default:
			out = "sudo " + out
		}
	}

	if ctx.Hostname != "" {
		opts := " "
		if ctx.SSHOptions != "" {
			opts = " " + ctx.SSHOptions + " "
		}
		out = "ssh" + opts + user + "@" + ctx.Hostname + " '" + out + "'"
	}
	return out
}
