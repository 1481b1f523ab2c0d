package engine

import (
	"encoding/json"
	"strings"

	ai "github.com/spetersoncode/cogs"

	"github.com/tidwall/gjson"
)

// structuredEngine decodes a response streamed as one JSON envelope with no
// semantic markers:
//
//	{"content": "...", "toolCall": {"name": "...", "arguments": {...}}}
//
// Each chunk, the accumulated buffer is repaired with completeJSON and the
// content field extracted; only the suffix beyond the last successfully
// parsed content is emitted, so earlier text is never re-emitted. The
// toolCall field is surfaced exactly once, at the moment the whole envelope
// parses strictly; a partial toolCall substring visible in the buffer reports
// no update.
type structuredEngine struct{}

// NewStructuredOutputs constructs the JSON-envelope engine.
func NewStructuredOutputs() Engine { return &structuredEngine{} }

func (e *structuredEngine) Kind() Kind { return StructuredOutputs }

func (e *structuredEngine) PreparePrompt(instructions string, tools []ai.Tool) string {
	var b strings.Builder
	b.WriteString(instructions)
	if len(tools) > 0 {
		b.WriteString("\n\n## Available Tools\n\n")
		b.WriteString(describeTools(tools))
	}
	b.WriteString("\nRespond with a single JSON object and nothing else:\n\n")
	b.WriteString("{\"content\": \"text shown to the user\", \"toolCall\": {\"name\": \"tool_name\", \"arguments\": {}}}\n\n")
	b.WriteString("Omit \"toolCall\" (or set it to null) when no tool is needed.")
	return b.String()
}

func (e *structuredEngine) PrepareRequest(req Request) ai.RequestParams {
	return ai.RequestParams{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

// structuredCursor persists the last successfully parsed content prefix so
// each chunk emits only the new suffix.
type structuredCursor struct {
	lastContent  string
	callSurfaced bool
}

func (e *structuredEngine) NewState() *State {
	st := NewState()
	st.Cursor = &structuredCursor{}
	return st
}

// envelope is the complete response shape.
type envelope struct {
	Content  string        `json:"content"`
	ToolCall *envelopeCall `json:"toolCall"`
}

type envelopeCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (e *structuredEngine) ProcessChunk(st *State, chunk ai.StreamChunk) ChunkResult {
	res := ChunkResult{Reasoning: chunk.Reasoning}

	st.Content.WriteString(chunk.Content)
	st.Reasoning.WriteString(chunk.Reasoning)
	if chunk.FinishReason != "" {
		st.Finish = chunk.FinishReason
	}
	if chunk.Usage != nil {
		st.Usage.Add(*chunk.Usage)
	}

	cur, ok := st.Cursor.(*structuredCursor)
	if !ok {
		res.Content = chunk.Content
		return res
	}

	buf := st.Content.String()

	// Tolerant pass: extract whatever content the repaired prefix exposes.
	if repaired, ok := completeJSON(buf); ok {
		if v := gjson.Get(repaired, "content"); v.Exists() && v.Type == gjson.String {
			content := v.String()
			if strings.HasPrefix(content, cur.lastContent) {
				res.Content = content[len(cur.lastContent):]
				cur.lastContent = content
			}
		}
	}

	// Strict pass: the toolCall surfaces once, when the envelope is whole.
	if !cur.callSurfaced {
		var env envelope
		if err := json.Unmarshal([]byte(buf), &env); err == nil && env.ToolCall != nil && env.ToolCall.Name != "" {
			cur.callSurfaced = true
			id := env.ToolCall.ID
			if id == "" {
				id = "call_1"
			}
			args := "{}"
			if len(env.ToolCall.Arguments) > 0 {
				args = string(env.ToolCall.Arguments)
			}
			c := st.AddCall(id, env.ToolCall.Name)
			c.Args.WriteString(args)
			c.Complete = true

			res.HasToolCallUpdate = true
			res.Updates = append(res.Updates, ToolCallUpdate{
				ID:             id,
				Name:           env.ToolCall.Name,
				ArgumentsDelta: args,
				Complete:       true,
			})
			res.ToolCalls = st.Snapshot()
		}
	}

	return res
}

func (e *structuredEngine) Finalize(st *State) *ai.Response {
	raw := st.Content.String()
	content := raw

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil {
		content = env.Content
		if cur, ok := st.Cursor.(*structuredCursor); ok && !cur.callSurfaced &&
			env.ToolCall != nil && env.ToolCall.Name != "" {
			// The whole envelope only parsed on the final buffer.
			id := env.ToolCall.ID
			if id == "" {
				id = "call_1"
			}
			args := "{}"
			if len(env.ToolCall.Arguments) > 0 {
				args = string(env.ToolCall.Arguments)
			}
			c := st.AddCall(id, env.ToolCall.Name)
			c.Args.WriteString(args)
			c.Complete = true
			cur.callSurfaced = true
		}
	} else if repaired, ok := completeJSON(raw); ok {
		// Incomplete final buffer: best-effort content, no tool call.
		if v := gjson.Get(repaired, "content"); v.Exists() && v.Type == gjson.String {
			content = v.String()
		}
	}

	toolCalls := st.Snapshot()
	return &ai.Response{
		Content:      content,
		RawContent:   raw,
		Reasoning:    st.Reasoning.String(),
		ToolCalls:    toolCalls,
		FinishReason: st.finishReason(toolCalls),
		Usage:        st.Usage,
	}
}

// AssistantMessage replays the original envelope text: the model is expected
// to keep producing the same shape on the next turn.
func (e *structuredEngine) AssistantMessage(resp *ai.Response) ai.Message {
	return ai.Message{
		Role:    ai.RoleAssistant,
		Content: resp.RawContent,
	}
}

func (e *structuredEngine) ToolResultMessages(resp *ai.Response, results []ai.ToolResult) []ai.Message {
	if len(results) == 0 {
		return nil
	}
	payload, err := json.Marshal(map[string]any{"toolResults": results})
	if err != nil {
		return nil
	}
	return []ai.Message{{Role: ai.RoleUser, Content: string(payload)}}
}

var _ Engine = (*structuredEngine)(nil)
