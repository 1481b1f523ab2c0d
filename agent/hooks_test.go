package agent

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/cogs"
	"github.com/spetersoncode/cogs/engine"
	"github.com/spetersoncode/cogs/event"
)

func TestHooks_ObservationSeams(t *testing.T) {
	transport := &fakeTransport{scripts: [][]ai.StreamChunk{
		toolScript("call_1", "echo", "{}"),
		textScript("done"),
	}}

	var iterations []int
	var requests, responses, before, after int32

	r := New(transport, echoRegistry(t), WithHooks(Hooks{
		OnIterationStart: func(ctx context.Context, iteration int) {
			iterations = append(iterations, iteration)
		},
		OnRequest:      func(ctx context.Context, req *engine.Request) { atomic.AddInt32(&requests, 1) },
		OnResponse:     func(ctx context.Context, resp *ai.Response) { atomic.AddInt32(&responses, 1) },
		BeforeToolCall: func(ctx context.Context, call ai.ToolCall) ai.ToolCall {
			atomic.AddInt32(&before, 1)
			return call
		},
		AfterToolCall: func(ctx context.Context, call ai.ToolCall, result ai.ToolResult) ai.ToolResult {
			atomic.AddInt32(&after, 1)
			return result
		},
	}))

	_, err := r.Execute(context.Background(), ai.NewUserMessage("hi"))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, iterations)
	assert.Equal(t, int32(2), requests)
	assert.Equal(t, int32(2), responses)
	assert.Equal(t, int32(1), before)
	assert.Equal(t, int32(1), after)
}

func TestHooks_PrepareRequest(t *testing.T) {
	transport := &fakeTransport{scripts: [][]ai.StreamChunk{textScript("ok")}}
	r := New(transport, echoRegistry(t), WithInstructions("base"), WithHooks(Hooks{
		PrepareRequest: func(ctx context.Context, instructions string, tools []ai.Tool) (string, []ai.Tool) {
			// Drop all tools and rewrite the instructions for this turn.
			return instructions + " (amended)", nil
		},
	}))

	_, err := r.Execute(context.Background(), ai.NewUserMessage("hi"))
	require.NoError(t, err)

	req := transport.request(0)
	assert.Empty(t, req.Tools)
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, ai.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "base (amended)", req.Messages[0].Content)
}

func TestHooks_ShouldTerminate(t *testing.T) {
	// The default keeps looping on tool calls; this override stops after the
	// first response regardless.
	transport := &fakeTransport{scripts: [][]ai.StreamChunk{
		toolScript("call_1", "echo", "{}"),
	}}
	r := New(transport, echoRegistry(t), WithHooks(Hooks{
		ShouldTerminate: func(ctx context.Context, resp *ai.Response) bool { return true },
	}))

	resp, err := r.Execute(context.Background(), ai.NewUserMessage("hi"))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 1, transport.callCount())
	// The tool still executed before termination was decided.
	assert.Len(t, eventsOfType(r, event.ToolResult), 1)
	assert.Len(t, eventsOfType(r, event.FinalAnswer), 1)
}

func TestHooks_PanicsAreContained(t *testing.T) {
	transport := &fakeTransport{scripts: [][]ai.StreamChunk{
		toolScript("call_1", "echo", "{}"),
		textScript("survived"),
	}}

	var loopEnds int32
	r := New(transport, echoRegistry(t), WithHooks(Hooks{
		OnIterationStart: func(ctx context.Context, iteration int) { panic("iteration hook") },
		OnResponse:       func(ctx context.Context, resp *ai.Response) { panic("response hook") },
		BeforeToolCall:   func(ctx context.Context, call ai.ToolCall) ai.ToolCall { panic("tool hook") },
		OnLoopEnd: func(ctx context.Context, resp *ai.Response, err error) {
			atomic.AddInt32(&loopEnds, 1)
			panic("loop end hook")
		},
	}))

	resp, err := r.Execute(context.Background(), ai.NewUserMessage("hi"))
	require.NoError(t, err)
	assert.Equal(t, "survived", resp.Content)
	assert.Equal(t, int32(1), loopEnds)
}

func TestHooks_OnLoopEndExactlyOnce(t *testing.T) {
	t.Run("on success", func(t *testing.T) {
		transport := &fakeTransport{scripts: [][]ai.StreamChunk{textScript("ok")}}
		var count int32
		r := New(transport, nil, WithHooks(Hooks{
			OnLoopEnd: func(ctx context.Context, resp *ai.Response, err error) {
				atomic.AddInt32(&count, 1)
				assert.NoError(t, err)
				assert.NotNil(t, resp)
			},
		}))
		_, err := r.Execute(context.Background(), ai.NewUserMessage("hi"))
		require.NoError(t, err)
		assert.Equal(t, int32(1), count)
	})

	t.Run("on abort", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		transport := &fakeTransport{scripts: [][]ai.StreamChunk{textScript("ok")}}
		var count int32
		r := New(transport, nil, WithHooks(Hooks{
			OnLoopEnd: func(ctx context.Context, resp *ai.Response, err error) {
				atomic.AddInt32(&count, 1)
				assert.ErrorIs(t, err, context.Canceled)
			},
		}))
		_, err := r.Execute(ctx, ai.NewUserMessage("hi"))
		require.Error(t, err)
		assert.Equal(t, int32(1), count)
	})
}

func TestHooks_ShouldTerminateDefault(t *testing.T) {
	h := Hooks{}
	log := discardLogger()

	assert.True(t, h.shouldTerminate(context.Background(), log, &ai.Response{}))
	assert.False(t, h.shouldTerminate(context.Background(), log, &ai.Response{
		ToolCalls: []ai.ToolCall{{ID: "call_1", Name: "echo"}},
	}))
}
