package agent

import (
	"context"
	"log/slog"

	ai "github.com/spetersoncode/cogs"
	"github.com/spetersoncode/cogs/engine"
)

// Hooks are optional extension points invoked at fixed seams of the loop.
// Every field may be nil. A hook that panics or misbehaves must not take the
// loop down with it: the runner recovers, logs, and continues with the
// default behavior for that seam.
type Hooks struct {
	// OnIterationStart runs at the top of each iteration, after the abort
	// check, before the request is shaped.
	OnIterationStart func(ctx context.Context, iteration int)

	// PrepareRequest may rewrite the instructions and tool list for the
	// upcoming request. Returning the inputs unchanged is the identity.
	PrepareRequest func(ctx context.Context, instructions string, tools []ai.Tool) (string, []ai.Tool)

	// OnRequest observes the fully shaped request just before it is sent.
	OnRequest func(ctx context.Context, req *engine.Request)

	// OnResponse observes the finalized response of each iteration.
	OnResponse func(ctx context.Context, resp *ai.Response)

	// BeforeToolCall runs before each tool is executed and may rewrite the
	// call (typically its arguments). If the hook fails, the original call
	// is executed unchanged.
	BeforeToolCall func(ctx context.Context, call ai.ToolCall) ai.ToolCall

	// AfterToolCall runs after each tool returns and may rewrite the result.
	// If the hook fails, the original result is kept.
	AfterToolCall func(ctx context.Context, call ai.ToolCall, result ai.ToolResult) ai.ToolResult

	// TranslateToolError may rewrite the message surfaced to the model when
	// a tool handler fails. When nil the failure text is used as-is.
	TranslateToolError func(ctx context.Context, call ai.ToolCall, err error) string

	// ShouldTerminate decides whether the loop ends after an iteration that
	// produced tool calls. When nil the loop continues while tool calls are
	// present.
	ShouldTerminate func(ctx context.Context, resp *ai.Response) bool

	// OnLoopEnd runs exactly once per execution, on every exit path.
	OnLoopEnd func(ctx context.Context, resp *ai.Response, err error)
}

// contain runs fn, recovering from a panic so a hook cannot terminate the
// loop. The seam name is logged for diagnosis.
func contain(log *slog.Logger, seam string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("hook panicked", "hook", seam, "panic", r)
		}
	}()
	fn()
}

func (h Hooks) iterationStart(ctx context.Context, log *slog.Logger, iteration int) {
	if h.OnIterationStart == nil {
		return
	}
	contain(log, "OnIterationStart", func() { h.OnIterationStart(ctx, iteration) })
}

func (h Hooks) prepareRequest(ctx context.Context, log *slog.Logger, instructions string, tools []ai.Tool) (string, []ai.Tool) {
	if h.PrepareRequest == nil {
		return instructions, tools
	}
	outInstr, outTools := instructions, tools
	contain(log, "PrepareRequest", func() { outInstr, outTools = h.PrepareRequest(ctx, instructions, tools) })
	return outInstr, outTools
}

func (h Hooks) request(ctx context.Context, log *slog.Logger, req *engine.Request) {
	if h.OnRequest == nil {
		return
	}
	contain(log, "OnRequest", func() { h.OnRequest(ctx, req) })
}

func (h Hooks) response(ctx context.Context, log *slog.Logger, resp *ai.Response) {
	if h.OnResponse == nil {
		return
	}
	contain(log, "OnResponse", func() { h.OnResponse(ctx, resp) })
}

func (h Hooks) beforeToolCall(ctx context.Context, log *slog.Logger, call ai.ToolCall) ai.ToolCall {
	if h.BeforeToolCall == nil {
		return call
	}
	out := call
	contain(log, "BeforeToolCall", func() { out = h.BeforeToolCall(ctx, call) })
	return out
}

func (h Hooks) afterToolCall(ctx context.Context, log *slog.Logger, call ai.ToolCall, result ai.ToolResult) ai.ToolResult {
	if h.AfterToolCall == nil {
		return result
	}
	out := result
	contain(log, "AfterToolCall", func() { out = h.AfterToolCall(ctx, call, result) })
	return out
}

func (h Hooks) translateToolError(ctx context.Context, log *slog.Logger, call ai.ToolCall, err error) string {
	msg := err.Error()
	if h.TranslateToolError == nil {
		return msg
	}
	contain(log, "TranslateToolError", func() { msg = h.TranslateToolError(ctx, call, err) })
	return msg
}

func (h Hooks) shouldTerminate(ctx context.Context, log *slog.Logger, resp *ai.Response) bool {
	if h.ShouldTerminate == nil {
		return len(resp.ToolCalls) == 0
	}
	term := false
	contain(log, "ShouldTerminate", func() { term = h.ShouldTerminate(ctx, resp) })
	return term
}

func (h Hooks) loopEnd(ctx context.Context, log *slog.Logger, resp *ai.Response, err error) {
	if h.OnLoopEnd == nil {
		return
	}
	contain(log, "OnLoopEnd", func() { h.OnLoopEnd(ctx, resp, err) })
}
