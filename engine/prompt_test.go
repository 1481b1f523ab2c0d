package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/cogs"
)

func TestPrompt_PreparePrompt(t *testing.T) {
	e := NewPromptEngineering()

	t.Run("no tools leaves instructions unchanged", func(t *testing.T) {
		assert.Equal(t, "be helpful", e.PreparePrompt("be helpful", nil))
	})

	t.Run("tools are folded into the prompt", func(t *testing.T) {
		tools := []ai.Tool{{Name: "calc", Description: "does math", Parameters: json.RawMessage(`{"type":"object"}`)}}
		prompt := e.PreparePrompt("be helpful", tools)
		assert.Contains(t, prompt, "be helpful")
		assert.Contains(t, prompt, "calc")
		assert.Contains(t, prompt, "does math")
		assert.Contains(t, prompt, openMarker)
		assert.Contains(t, prompt, closeMarker)
	})
}

func TestPrompt_PrepareRequest(t *testing.T) {
	e := NewPromptEngineering()
	params := e.PrepareRequest(Request{
		Model: "gpt-test",
		Tools: []ai.Tool{{Name: "calc"}},
	})
	// Tool schemas never travel in the request for this variant.
	assert.Empty(t, params.Tools)
	assert.Empty(t, params.ToolChoice)
}

func TestPrompt_PlainText(t *testing.T) {
	e := NewPromptEngineering()
	resp, results := feedText(e, "Hello, ", "world.")

	assert.Equal(t, "Hello, ", results[0].Content)
	assert.Equal(t, "world.", results[1].Content)
	assert.Equal(t, "Hello, world.", resp.Content)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, ai.FinishStop, resp.FinishReason)
}

func TestPrompt_SingleToolCall(t *testing.T) {
	text := "Let me check.\n<tool_call>\n{\"name\": \"weather\", \"parameters\": {\"city\": \"Paris\"}}\n</tool_call>"
	e := NewPromptEngineering()
	resp, _ := feedText(e, text)

	require.Len(t, resp.ToolCalls, 1)
	call := resp.ToolCalls[0]
	assert.Equal(t, "weather", call.Name)
	assert.NotEmpty(t, call.ID)
	assert.JSONEq(t, `{"city": "Paris"}`, call.Arguments)

	// Markup is stripped from display content but kept in the raw text.
	assert.Equal(t, "Let me check.\n", resp.Content)
	assert.Equal(t, text, resp.RawContent)
	assert.Equal(t, ai.FinishToolCalls, resp.FinishReason)
}

func TestPrompt_CharByChar(t *testing.T) {
	text := "<tool_call>\n{\"name\": \"x\", \"parameters\": {}}\n</tool_call>"
	e := NewPromptEngineering()

	st := e.NewState()
	var completes int
	var emittedArgs string
	for _, ch := range splitEvery(text, 1) {
		res := e.ProcessChunk(st, ai.StreamChunk{Content: ch})
		// No marker text may leak into display content.
		assert.Empty(t, res.Content)
		for _, u := range res.Updates {
			emittedArgs += u.ArgumentsDelta
			if u.Complete {
				completes++
			}
		}
	}

	resp := e.Finalize(st)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "x", resp.ToolCalls[0].Name)
	assert.Equal(t, 1, completes, "exactly one completion update")
	assert.Equal(t, resp.ToolCalls[0].Arguments, emittedArgs)
	assert.True(t, json.Valid([]byte(resp.ToolCalls[0].Arguments)))
	assert.Empty(t, resp.Content)
}

func TestPrompt_SplitInvariance(t *testing.T) {
	text := "Sure!\n<tool_call>\n{\"name\": \"search\", \"parameters\": {\"q\": \"go <tool> syntax\", \"n\": 3}}\n</tool_call>\nDone."

	e := NewPromptEngineering()
	whole, _ := feedText(e, text)

	for _, n := range []int{1, 2, 3, 5, 7, 11, len(text)} {
		t.Run(fmt.Sprintf("chunk size %d", n), func(t *testing.T) {
			e := NewPromptEngineering()
			st := e.NewState()
			var content string
			for _, piece := range splitEvery(text, n) {
				res := e.ProcessChunk(st, ai.StreamChunk{Content: piece})
				content += res.Content
			}
			resp := e.Finalize(st)

			assert.Equal(t, whole.Content, resp.Content)
			assert.Equal(t, whole.RawContent, resp.RawContent)
			assert.Equal(t, whole.ToolCalls, resp.ToolCalls)
			assert.Equal(t, whole.FinishReason, resp.FinishReason)
			// Streamed deltas concatenate to the final display content.
			assert.Equal(t, whole.Content, content)
		})
	}
}

func TestPrompt_MultipleCalls(t *testing.T) {
	text := "<tool_call>{\"name\": \"a\", \"parameters\": {\"i\": 1}}</tool_call>" +
		" and " +
		"<tool_call>{\"name\": \"b\", \"parameters\": {\"i\": 2}}</tool_call>"
	e := NewPromptEngineering()
	resp, _ := feedText(e, text)

	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "a", resp.ToolCalls[0].Name)
	assert.Equal(t, "b", resp.ToolCalls[1].Name)
	assert.NotEqual(t, resp.ToolCalls[0].ID, resp.ToolCalls[1].ID)
	assert.Equal(t, " and ", resp.Content)
}

func TestPrompt_Degradation(t *testing.T) {
	t.Run("span without a tool name becomes display text", func(t *testing.T) {
		text := "<tool_call>this is not json</tool_call>"
		e := NewPromptEngineering()
		resp, _ := feedText(e, text)

		assert.Empty(t, resp.ToolCalls)
		assert.Equal(t, text, resp.Content)
	})

	t.Run("unterminated span degrades to raw text", func(t *testing.T) {
		text := "Hi <tool_call>\n{\"name\": \"x\", \"parameters\": {"
		e := NewPromptEngineering()
		resp, _ := feedText(e, text)

		assert.Empty(t, resp.ToolCalls)
		assert.Equal(t, text, resp.Content)
		assert.Equal(t, ai.FinishStop, resp.FinishReason)
	})

	t.Run("partial marker at end of stream is flushed", func(t *testing.T) {
		e := NewPromptEngineering()
		resp, _ := feedText(e, "almost <tool_ca")
		assert.Equal(t, "almost <tool_ca", resp.Content)
	})

	t.Run("angle bracket text passes through", func(t *testing.T) {
		e := NewPromptEngineering()
		resp, _ := feedText(e, "a < b and <tools> differ")
		assert.Equal(t, "a < b and <tools> differ", resp.Content)
		assert.Empty(t, resp.ToolCalls)
	})
}

func TestPrompt_ArgumentsKeySupported(t *testing.T) {
	// Models sometimes emit "arguments" instead of "parameters".
	text := "<tool_call>{\"name\": \"calc\", \"arguments\": {\"a\": 1}}</tool_call>"
	e := NewPromptEngineering()
	resp, _ := feedText(e, text)

	require.Len(t, resp.ToolCalls, 1)
	assert.JSONEq(t, `{"a": 1}`, resp.ToolCalls[0].Arguments)
}

func TestPrompt_HistorySerialization(t *testing.T) {
	e := NewPromptEngineering()
	raw := "text <tool_call>{\"name\": \"calc\", \"parameters\": {}}</tool_call>"
	resp := &ai.Response{
		Content:    "text ",
		RawContent: raw,
		ToolCalls:  []ai.ToolCall{{ID: "call_1", Name: "calc", Arguments: "{}"}},
	}

	t.Run("assistant turn replays the raw markup", func(t *testing.T) {
		msg := e.AssistantMessage(resp)
		assert.Equal(t, ai.RoleAssistant, msg.Role)
		assert.Equal(t, raw, msg.Content)
		assert.Empty(t, msg.ToolCalls)
	})

	t.Run("tool results fold into a user message", func(t *testing.T) {
		results := []ai.ToolResult{
			{ToolCallID: "call_1", ToolName: "calc", Content: "4"},
			{ToolCallID: "call_2", ToolName: "calc", Content: "9"},
		}
		msgs := e.ToolResultMessages(resp, results)
		require.Len(t, msgs, 1)
		assert.Equal(t, ai.RoleUser, msgs[0].Role)
		assert.Contains(t, msgs[0].Content, `<tool_result name="calc" id="call_1">`)
		assert.Contains(t, msgs[0].Content, "4")
		assert.Contains(t, msgs[0].Content, `id="call_2"`)
		assert.True(t, strings.Count(msgs[0].Content, "</tool_result>") == 2)
	})
}

func TestPartialMarkerSuffix(t *testing.T) {
	tests := []struct {
		s    string
		want int
	}{
		{"hello", 0},
		{"hello <", 1},
		{"hello <tool", 5},
		{"hello <tool_call", 10},
		{"<tool_call>", 0}, // complete marker, not a partial
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, partialMarkerSuffix(tt.s, openMarker), "suffix of %q", tt.s)
	}
}
