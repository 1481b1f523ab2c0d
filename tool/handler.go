// Package tool provides the registry that maps tool names to executable
// handlers, plus typed registration with automatic JSON Schema generation.
package tool

import (
	"context"

	ai "github.com/spetersoncode/cogs"
)

// Handler is a function that executes a tool call and returns a result.
// The context supports cancellation and timeout.
// The call contains the tool name, ID, and arguments as a JSON string.
// Returns the result content string, or an error if execution failed.
type Handler func(ctx context.Context, call ai.ToolCall) (string, error)

// TypedHandler is a function that executes a tool call with typed arguments.
// The args parameter is automatically unmarshaled from the tool call's JSON arguments.
type TypedHandler[T any] func(ctx context.Context, args T) (string, error)

// Source lists the tools available to an agent iteration. *Registry is the
// in-process implementation; mcp.RemoteRegistry proxies an MCP server.
type Source interface {
	// Tools returns all available tool definitions.
	Tools() []ai.Tool
	// Execute runs the named tool for a call and returns its result.
	Execute(ctx context.Context, call ai.ToolCall) (ai.ToolResult, error)
}
