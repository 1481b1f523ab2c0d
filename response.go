package cogs

// FinishReason is the closed-set classification of why a response ended.
type FinishReason string

const (
	// FinishStop indicates the model finished a normal text response.
	FinishStop FinishReason = "stop"

	// FinishLength indicates the response was truncated by a token limit.
	FinishLength FinishReason = "length"

	// FinishToolCalls indicates the response requested one or more tool calls.
	// Whenever finished tool calls exist, this reason takes precedence over
	// whatever raw signal the transport reported.
	FinishToolCalls FinishReason = "tool_calls"

	// FinishContentFilter indicates the response was cut by a safety filter.
	FinishContentFilter FinishReason = "content_filter"

	// FinishError indicates the request failed with a non-abort error.
	FinishError FinishReason = "error"

	// FinishAbort indicates the caller aborted the request.
	FinishAbort FinishReason = "abort"
)

// NormalizeFinishReason maps a transport's raw finish signal onto the closed
// set. Unknown or empty signals default to FinishStop.
func NormalizeFinishReason(raw string) FinishReason {
	switch raw {
	case "stop", "end_turn", "STOP", "":
		return FinishStop
	case "length", "max_tokens", "MAX_TOKENS":
		return FinishLength
	case "tool_calls", "tool_use", "function_call":
		return FinishToolCalls
	case "content_filter", "refusal", "SAFETY":
		return FinishContentFilter
	default:
		return FinishStop
	}
}

// Usage contains token usage information for a request.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add accumulates another usage record into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Response is the finalized output of one request/response cycle.
type Response struct {
	// Content is the display content with any tool markup removed.
	Content string `json:"content,omitempty"`
	// RawContent is the original streamed text, including any inline tool
	// markup. History serialization needs it to replay the turn faithfully.
	RawContent string `json:"rawContent,omitempty"`
	// Reasoning contains the model's reasoning/thinking content, if any.
	Reasoning string `json:"reasoning,omitempty"`
	// FinishReason classifies why the response ended.
	FinishReason FinishReason `json:"finishReason,omitempty"`
	// ToolCalls contains finished tool invocation requests from the model.
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	// Usage reports token consumption for the request.
	Usage Usage `json:"usage"`
}
