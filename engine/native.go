package engine

import (
	ai "github.com/spetersoncode/cogs"
)

// nativeEngine trusts transport-level function-call deltas. Fragments are
// correlated by a per-response index: the first fragment carrying an index
// establishes that call's id and name, and later argument-only fragments for
// the same index inherit them. Argument deltas are concatenated verbatim.
//
// The identity rule is a documented assumption about provider behavior, not a
// guaranteed protocol invariant; fragments that re-send id or name for a
// known index simply overwrite with identical values.
type nativeEngine struct{}

// NewNative constructs the native function-calling engine.
func NewNative() Engine { return &nativeEngine{} }

func (e *nativeEngine) Kind() Kind { return Native }

// PreparePrompt returns the instructions unchanged: native tool schemas
// travel in the request, not in the prompt.
func (e *nativeEngine) PreparePrompt(instructions string, tools []ai.Tool) string {
	return instructions
}

func (e *nativeEngine) PrepareRequest(req Request) ai.RequestParams {
	params := ai.RequestParams{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if len(req.Tools) > 0 {
		params.Tools = req.Tools
		params.ToolChoice = ai.ToolChoiceAuto
	}
	return params
}

func (e *nativeEngine) NewState() *State { return NewState() }

func (e *nativeEngine) ProcessChunk(st *State, chunk ai.StreamChunk) ChunkResult {
	res := ChunkResult{
		Content:   chunk.Content,
		Reasoning: chunk.Reasoning,
	}

	st.Content.WriteString(chunk.Content)
	st.Reasoning.WriteString(chunk.Reasoning)
	if chunk.FinishReason != "" {
		st.Finish = chunk.FinishReason
	}
	if chunk.Usage != nil {
		st.Usage.Add(*chunk.Usage)
	}

	for _, delta := range chunk.ToolCalls {
		c := st.CallAt(delta.Index)
		if delta.ID != "" {
			c.ID = delta.ID
		}
		if delta.Name != "" {
			c.Name = delta.Name
		}
		c.Args.WriteString(delta.ArgumentsDelta)

		res.HasToolCallUpdate = true
		res.Updates = append(res.Updates, ToolCallUpdate{
			ID:             c.ID,
			Name:           c.Name,
			ArgumentsDelta: delta.ArgumentsDelta,
		})
	}

	if res.HasToolCallUpdate {
		res.ToolCalls = st.Snapshot()
	}
	return res
}

func (e *nativeEngine) Finalize(st *State) *ai.Response {
	content := st.Content.String()
	var toolCalls []ai.ToolCall
	for _, c := range st.Snapshot() {
		// A call that never established a name cannot be executed.
		if c.Name == "" {
			continue
		}
		toolCalls = append(toolCalls, c)
	}
	return &ai.Response{
		Content:      content,
		RawContent:   content,
		Reasoning:    st.Reasoning.String(),
		ToolCalls:    toolCalls,
		FinishReason: st.finishReason(toolCalls),
		Usage:        st.Usage,
	}
}

// AssistantMessage keeps structured tool calls on the assistant message, the
// shape native providers expect back in history.
func (e *nativeEngine) AssistantMessage(resp *ai.Response) ai.Message {
	return ai.Message{
		Role:      ai.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	}
}

func (e *nativeEngine) ToolResultMessages(resp *ai.Response, results []ai.ToolResult) []ai.Message {
	if len(results) == 0 {
		return nil
	}
	return []ai.Message{ai.NewToolResultMessage(results...)}
}

var _ Engine = (*nativeEngine)(nil)
