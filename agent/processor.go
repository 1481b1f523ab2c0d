package agent

import (
	"context"
	"fmt"
	"log/slog"

	ai "github.com/spetersoncode/cogs"
	"github.com/spetersoncode/cogs/event"
	"github.com/spetersoncode/cogs/tool"
)

// processor executes the tool calls of one iteration sequentially, in the
// order the model emitted them, producing exactly one result per call.
type processor struct {
	source tool.Source
	hooks  Hooks
	log    *slog.Logger
	events *event.Stream
}

// run executes calls one at a time. A failing handler never fails the loop:
// the error is translated into an error-flagged result whose content the
// model can read and react to. Once the context is cancelled the remaining
// calls are not executed; they receive synthetic aborted results so the
// result set stays aligned with the call set.
func (p *processor) run(ctx context.Context, iteration int, calls []ai.ToolCall) []ai.ToolResult {
	results := make([]ai.ToolResult, 0, len(calls))

	for i, call := range calls {
		if ctx.Err() != nil {
			p.log.Debug("tool processing aborted", "remaining", len(calls)-i)
			for _, skipped := range calls[i:] {
				result := ai.ToolResult{
					ToolCallID: skipped.ID,
					ToolName:   skipped.Name,
					Content:    "Error: aborted before execution",
					IsError:    true,
				}
				results = append(results, result)
				p.emitResult(iteration, result)
			}
			break
		}

		results = append(results, p.execute(ctx, iteration, call))
	}

	return results
}

func (p *processor) execute(ctx context.Context, iteration int, call ai.ToolCall) ai.ToolResult {
	call = p.hooks.beforeToolCall(ctx, p.log, call)

	ev := p.events.CreateEvent(event.ToolCall)
	ev.Iteration = iteration
	ev.ToolCall = &call
	p.events.Send(ev)

	p.log.Debug("executing tool", "tool", call.Name, "id", call.ID)

	result, err := p.invoke(ctx, call)
	if err != nil {
		msg := p.hooks.translateToolError(ctx, p.log, call, err)
		p.log.Warn("tool failed", "tool", call.Name, "id", call.ID, "error", err)
		result = ai.ToolResult{
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Content:    "Error: " + msg,
			IsError:    true,
		}
	}
	if result.ToolCallID == "" {
		result.ToolCallID = call.ID
	}
	if result.ToolName == "" {
		result.ToolName = call.Name
	}

	result = p.hooks.afterToolCall(ctx, p.log, call, result)

	p.emitResult(iteration, result)
	return result
}

// invoke runs the tool, converting a panic into an error so a misbehaving
// handler never unwinds past the processor.
func (p *processor) invoke(ctx context.Context, call ai.ToolCall) (result ai.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return p.source.Execute(ctx, call)
}

func (p *processor) emitResult(iteration int, result ai.ToolResult) {
	ev := p.events.CreateEvent(event.ToolResult)
	ev.Iteration = iteration
	ev.ToolResult = &result
	p.events.Send(ev)
}
