// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes the sultan builder as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marcelocantos/sultan"
	"github.com/marcelocantos/sultan/internal/pipeline"
)

const instructions = `sultan runs shell command lines under an execution context.

Use "render" to see the exact line a command would become (with cd, source,
sudo and ssh wrapping applied) without running it. Use "run" to execute it;
the result carries stdout and stderr as line arrays plus the exit status.
A non-zero status is reported, not raised, unless halt is true.`

// Output is the JSON payload returned by the run tool.
type Output struct {
	Command string   `json:"command"`
	Stdout  []string `json:"stdout"`
	Stderr  []string `json:"stderr"`
	RC      int      `json:"rc"`
}

type handlers struct {
	factory sultan.Factory
}

// New returns an MCP server with the run and render tools registered.
func New(factory sultan.Factory, version string) *server.MCPServer {
	h := &handlers{factory: factory}
	s := server.NewMCPServer("sultan", version,
		server.WithToolCapabilities(false),
		server.WithInstructions(instructions),
	)
	s.AddTool(runTool(), h.run)
	s.AddTool(renderTool(), h.render)
	return s
}

// Serve blocks serving s over stdin/stdout.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func contextParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("command", mcp.Required(),
			mcp.Description("Command line, e.g. `ls -la | grep log && echo done`")),
		mcp.WithString("cwd", mcp.Description("Directory to cd into first")),
		mcp.WithBoolean("sudo", mcp.DefaultBool(false), mcp.Description("Run under sudo")),
		mcp.WithString("user", mcp.Description("User to run as")),
		mcp.WithString("hostname", mcp.Description("Run on this host over ssh")),
		mcp.WithNumber("port", mcp.Description("ssh port")),
		mcp.WithString("src", mcp.Description("File to source first")),
	}
}

func runTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Run a command line and return its output and exit status."),
	}, contextParams()...)
	opts = append(opts,
		mcp.WithBoolean("halt", mcp.DefaultBool(false),
			mcp.Description("Fail the call on a non-zero exit status")),
	)
	return mcp.NewTool("run", opts...)
}

func renderTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Show the exact shell line a command would run as, without running it."),
	}, contextParams()...)
	return mcp.NewTool("render", opts...)
}

// prepare parses the command and loads a Builder for the request's context.
func (h *handlers) prepare(req mcp.CallToolRequest) (*sultan.Builder, error) {
	line, err := req.RequireString("command")
	if err != nil {
		return nil, err
	}
	nodes, err := pipeline.ParseLine(line)
	if err != nil {
		return nil, err
	}
	b, err := h.factory(sultan.ContextOptions{
		Cwd:      req.GetString("cwd", ""),
		Sudo:     req.GetBool("sudo", false),
		User:     req.GetString("user", ""),
		Hostname: req.GetString("hostname", ""),
		SSH:      sultan.SSHOptions{Port: req.GetInt("port", 0)},
		Src:      req.GetString("src", ""),
	})
	if err != nil {
		return nil, err
	}
	return b.Append(nodes...), nil
}

func (h *handlers) render(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := h.prepare(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) run(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := h.prepare(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := b.Run(ctx, sultan.Quiet(), sultan.Halt(req.GetBool("halt", false)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if f := res.Failure(); f != nil {
		return mcp.NewToolResultError(f.Error()), nil
	}
	data, err := json.Marshal(Output{
		Command: res.Command,
		Stdout:  res.Stdout(),
		Stderr:  res.Stderr(),
		RC:      res.RC(),
	})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
