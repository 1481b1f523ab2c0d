// Package event provides the append-only event stream that records
// everything observable in an agent session. The stream is the single
// source of truth: the loop runner writes to it, the history builder and any
// presentation layer read from it.
package event

import (
	"time"

	ai "github.com/spetersoncode/cogs"

	"github.com/google/uuid"
)

// Type identifies the kind of event.
type Type string

// Run lifecycle events
const (
	// RunStart fires when a loop execution begins.
	RunStart Type = "run_start"

	// RunEnd fires when a loop execution ends, on success and failure alike.
	RunEnd Type = "run_end"
)

// Conversation events
const (
	// UserMessage records caller input added to the conversation.
	UserMessage Type = "user_message"

	// AssistantMessage records one finalized model turn.
	AssistantMessage Type = "assistant_message"

	// FinalAnswer records the assistant turn the loop accepted as terminal.
	FinalAnswer Type = "final_answer"

	// System records an out-of-band notice (e.g. a transport failure).
	System Type = "system"

	// Plan records a planning update emitted by a hook or tool.
	Plan Type = "plan"
)

// Streaming delta events
const (
	// ContentDelta fires for each decoded display-content fragment.
	ContentDelta Type = "content_delta"

	// ReasoningDelta fires for each decoded reasoning fragment.
	ReasoningDelta Type = "reasoning_delta"

	// ToolCallUpdate fires for each streaming change to an in-progress tool call.
	ToolCallUpdate Type = "tool_call_update"
)

// Tool execution events
const (
	// ToolCall fires when a resolved tool call is about to execute.
	ToolCall Type = "tool_call"

	// ToolResult fires with the outcome of one tool call.
	ToolResult Type = "tool_result"
)

// Event represents an observable occurrence during a session. Events are
// immutable once appended and never reordered.
type Event struct {
	// ID is the unique event identifier.
	ID string

	// Type identifies the kind of event.
	Type Type

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Iteration is the loop iteration the event belongs to (1-indexed),
	// 0 for events outside any iteration.
	Iteration int

	// MessageID correlates streaming deltas with their finalized message.
	MessageID string

	// Content carries message text or a content delta.
	Content string

	// Parts carries multimodal content for conversation events.
	Parts []ai.ContentPart

	// Reasoning carries reasoning text or a reasoning delta.
	Reasoning string

	// Message contains additional context (e.g. a system notice or the
	// termination reason on RunEnd).
	Message string

	// Response contains the finalized model turn for AssistantMessage,
	// FinalAnswer, and RunEnd events.
	Response *ai.Response

	// ToolCall contains the call for ToolCall and ToolCallUpdate events.
	ToolCall *ai.ToolCall

	// ToolResult contains the outcome for ToolResult events.
	ToolResult *ai.ToolResult

	// FinishReason classifies the outcome on terminal events.
	FinishReason ai.FinishReason

	// Error carries the failure message for error-bearing events.
	Error string

	// Usage reports accumulated token usage on RunEnd events.
	Usage *ai.Usage
}

// New creates an event of the given type with a fresh id and timestamp.
// The caller fills payload fields before appending it to a stream.
func New(t Type) Event {
	return Event{
		ID:        "evt-" + uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
	}
}

// IsStreaming reports whether the event is a streaming delta.
func (e Event) IsStreaming() bool {
	switch e.Type {
	case ContentDelta, ReasoningDelta, ToolCallUpdate:
		return true
	}
	return false
}

// IsTerminal reports whether the event ends a run.
func (e Event) IsTerminal() bool {
	return e.Type == RunEnd
}
