package cogs

import "context"

// RequestParams is the shaped outbound request handed to a Transport.
type RequestParams struct {
	// Model is the provider-specific model identifier.
	Model string
	// Messages is the role-tagged conversation to send.
	Messages []Message
	// Temperature is the sampling temperature, nil for provider default.
	Temperature *float64
	// MaxTokens limits the response length, 0 for provider default.
	MaxTokens int
	// Tools carries native tool schemas. Only populated by engines that rely
	// on request-level function calling; other engines fold tool definitions
	// into the system prompt instead.
	Tools []Tool
	// ToolChoice controls native tool selection when Tools is set.
	ToolChoice ToolChoice
}

// ToolCallDelta is one native function-call fragment from a transport.
// Providers may omit ID and Name on continuation fragments; Index correlates
// fragments belonging to the same call within one response.
type ToolCallDelta struct {
	Index          int
	ID             string
	Name           string
	ArgumentsDelta string
}

// StreamChunk is one incremental fragment of a model's response as delivered
// by the transport. A chunk carries zero or more of: a content delta, a
// reasoning delta, native tool-call deltas, and a raw finish signal.
type StreamChunk struct {
	// Content is the incremental display/text content.
	Content string
	// Reasoning is the incremental reasoning/thinking content.
	Reasoning string
	// ToolCalls contains native function-call fragments.
	ToolCalls []ToolCallDelta
	// FinishReason is the provider's raw finish signal, empty until the
	// response ends.
	FinishReason string
	// Usage reports token consumption, usually only on the final chunk.
	Usage *Usage
	// Err carries a transport failure. A chunk with Err set terminates the
	// stream; no further chunks follow.
	Err error
}

// Transport delivers a shaped request to a model provider and returns the
// response as an ordered sequence of chunks. The returned channel is closed
// when the response completes or the context is cancelled.
type Transport interface {
	Stream(ctx context.Context, params RequestParams) (<-chan StreamChunk, error)
}
