package engine

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/cogs"
)

func TestNative_PreparePrompt(t *testing.T) {
	e := NewNative()
	tools := []ai.Tool{{Name: "calc", Description: "does math"}}
	assert.Equal(t, "be helpful", e.PreparePrompt("be helpful", tools))
}

func TestNative_PrepareRequest(t *testing.T) {
	e := NewNative()

	t.Run("tools travel in the request", func(t *testing.T) {
		params := e.PrepareRequest(Request{
			Model: "gpt-test",
			Tools: []ai.Tool{{Name: "calc"}},
		})
		assert.Equal(t, "gpt-test", params.Model)
		require.Len(t, params.Tools, 1)
		assert.Equal(t, ai.ToolChoiceAuto, params.ToolChoice)
	})

	t.Run("no tools means no tool choice", func(t *testing.T) {
		params := e.PrepareRequest(Request{Model: "gpt-test"})
		assert.Empty(t, params.Tools)
		assert.Empty(t, params.ToolChoice)
	})
}

func TestNative_StreamedToolCall(t *testing.T) {
	e := NewNative()
	st := e.NewState()

	// First fragment establishes identity, second carries remaining args.
	r1 := e.ProcessChunk(st, ai.StreamChunk{
		ToolCalls: []ai.ToolCallDelta{{Index: 0, ID: "call_1", Name: "calc", ArgumentsDelta: `{"a"`}},
	})
	require.True(t, r1.HasToolCallUpdate)
	require.Len(t, r1.Updates, 1)
	assert.Equal(t, "call_1", r1.Updates[0].ID)
	assert.Equal(t, "calc", r1.Updates[0].Name)
	assert.Equal(t, `{"a"`, r1.Updates[0].ArgumentsDelta)

	r2 := e.ProcessChunk(st, ai.StreamChunk{
		ToolCalls:    []ai.ToolCallDelta{{Index: 0, ArgumentsDelta: `:1}`}},
		FinishReason: "tool_calls",
	})
	require.True(t, r2.HasToolCallUpdate)
	// Continuation fragment inherits the identity from its index.
	assert.Equal(t, "call_1", r2.Updates[0].ID)
	assert.Equal(t, "calc", r2.Updates[0].Name)

	resp := e.Finalize(st)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, ai.ToolCall{ID: "call_1", Name: "calc", Arguments: `{"a":1}`}, resp.ToolCalls[0])
	assert.Equal(t, ai.FinishToolCalls, resp.FinishReason)
	assert.True(t, json.Valid([]byte(resp.ToolCalls[0].Arguments)))
}

func TestNative_ArgumentDeltasSumToFinal(t *testing.T) {
	e := NewNative()
	st := e.NewState()

	full := `{"location": "Paris", "unit": "celsius"}`
	var emitted string
	for _, piece := range splitEvery(full, 3) {
		res := e.ProcessChunk(st, ai.StreamChunk{
			ToolCalls: []ai.ToolCallDelta{{Index: 0, ID: "call_1", Name: "weather", ArgumentsDelta: piece}},
		})
		for _, u := range res.Updates {
			emitted += u.ArgumentsDelta
		}
	}

	resp := e.Finalize(st)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, full, emitted)
	assert.Equal(t, full, resp.ToolCalls[0].Arguments)
}

func TestNative_SplitInvariance(t *testing.T) {
	args := `{"location": "Paris", "unit": "celsius"}`

	run := func(pieces []string) *ai.Response {
		e := NewNative()
		st := e.NewState()
		e.ProcessChunk(st, ai.StreamChunk{Content: "Checking."})
		for i, piece := range pieces {
			delta := ai.ToolCallDelta{Index: 0, ArgumentsDelta: piece}
			if i == 0 {
				delta.ID = "call_1"
				delta.Name = "weather"
			}
			e.ProcessChunk(st, ai.StreamChunk{ToolCalls: []ai.ToolCallDelta{delta}})
		}
		e.ProcessChunk(st, ai.StreamChunk{FinishReason: "tool_calls"})
		return e.Finalize(st)
	}

	whole := run([]string{args})
	for _, n := range []int{1, 2, 3, 5, 7, len(args)} {
		t.Run(fmt.Sprintf("fragment size %d", n), func(t *testing.T) {
			resp := run(splitEvery(args, n))
			assert.Equal(t, whole.Content, resp.Content)
			assert.Equal(t, whole.ToolCalls, resp.ToolCalls)
			assert.Equal(t, whole.FinishReason, resp.FinishReason)
		})
	}
}

func TestNative_InterleavedCalls(t *testing.T) {
	e := NewNative()
	st := e.NewState()

	e.ProcessChunk(st, ai.StreamChunk{ToolCalls: []ai.ToolCallDelta{
		{Index: 0, ID: "call_a", Name: "alpha", ArgumentsDelta: `{"x"`},
		{Index: 1, ID: "call_b", Name: "beta", ArgumentsDelta: `{"y"`},
	}})
	e.ProcessChunk(st, ai.StreamChunk{ToolCalls: []ai.ToolCallDelta{
		{Index: 1, ArgumentsDelta: `:2}`},
		{Index: 0, ArgumentsDelta: `:1}`},
	}})

	resp := e.Finalize(st)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, ai.ToolCall{ID: "call_a", Name: "alpha", Arguments: `{"x":1}`}, resp.ToolCalls[0])
	assert.Equal(t, ai.ToolCall{ID: "call_b", Name: "beta", Arguments: `{"y":2}`}, resp.ToolCalls[1])
}

func TestNative_ContentAndUsage(t *testing.T) {
	e := NewNative()
	st := e.NewState()

	e.ProcessChunk(st, ai.StreamChunk{Content: "Hello, ", Reasoning: "think"})
	e.ProcessChunk(st, ai.StreamChunk{Content: "world.", FinishReason: "stop", Usage: &ai.Usage{InputTokens: 10, OutputTokens: 5}})

	resp := e.Finalize(st)
	assert.Equal(t, "Hello, world.", resp.Content)
	assert.Equal(t, "Hello, world.", resp.RawContent)
	assert.Equal(t, "think", resp.Reasoning)
	assert.Equal(t, ai.FinishStop, resp.FinishReason)
	assert.Equal(t, ai.Usage{InputTokens: 10, OutputTokens: 5}, resp.Usage)
}

func TestNative_NamelessCallDropped(t *testing.T) {
	e := NewNative()
	st := e.NewState()

	// A fragment with an id but no name in the whole response.
	e.ProcessChunk(st, ai.StreamChunk{
		ToolCalls: []ai.ToolCallDelta{{Index: 0, ID: "call_1", ArgumentsDelta: "{}"}},
	})

	resp := e.Finalize(st)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, ai.FinishStop, resp.FinishReason)
}

func TestNative_HistorySerialization(t *testing.T) {
	e := NewNative()
	resp := &ai.Response{
		Content:   "checking",
		ToolCalls: []ai.ToolCall{{ID: "call_1", Name: "calc", Arguments: "{}"}},
	}

	msg := e.AssistantMessage(resp)
	assert.Equal(t, ai.RoleAssistant, msg.Role)
	assert.Equal(t, "checking", msg.Content)
	assert.Equal(t, resp.ToolCalls, msg.ToolCalls)

	results := []ai.ToolResult{{ToolCallID: "call_1", ToolName: "calc", Content: "4"}}
	msgs := e.ToolResultMessages(resp, results)
	require.Len(t, msgs, 1)
	assert.Equal(t, ai.RoleTool, msgs[0].Role)
	assert.Equal(t, results, msgs[0].ToolResults)

	assert.Nil(t, e.ToolResultMessages(resp, nil))
}
