// Package engine implements tool call engines: the strategies that shape
// model requests and decode streamed responses for one specific model output
// encoding.
//
// Three built-in variants exist. [Native] trusts request-level function
// calling and transport-delivered tool-call deltas. [PromptEngineering]
// extracts tool calls from inline markup embedded in free text.
// [StructuredOutputs] decodes a single streamed JSON envelope. Custom engines
// can be added with [Register].
//
// Every variant is driven the same way per request: allocate a fresh [State]
// with NewState, fold each transport chunk into it with ProcessChunk, and
// consume it exactly once with Finalize. ProcessChunk never fails; malformed
// partial input yields a best-effort [ChunkResult] and leaves the state valid
// for the next chunk. Finalize is split-invariant: any partitioning of the
// same byte stream into chunks produces an identical response.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	ai "github.com/spetersoncode/cogs"
)

// Kind identifies a tool call engine variant.
type Kind string

const (
	// Native uses request-level tool schemas and transport function-call deltas.
	Native Kind = "native"

	// PromptEngineering folds tool definitions into the system prompt and
	// parses inline <tool_call> markup out of the streamed text.
	PromptEngineering Kind = "prompt_engineering"

	// StructuredOutputs instructs the model to respond with one JSON envelope
	// {"content": ..., "toolCall": ...} streamed as raw text.
	StructuredOutputs Kind = "structured_outputs"
)

// Request describes one iteration's model call before engine shaping.
type Request struct {
	// Model is the provider-specific model identifier.
	Model string
	// Instructions is the system prompt before any engine additions.
	Instructions string
	// Messages is the conversation history, already serialized for this engine.
	Messages []ai.Message
	// Tools lists the tools available this iteration.
	Tools []ai.Tool
	// Temperature is the sampling temperature, nil for provider default.
	Temperature *float64
	// MaxTokens limits the response length, 0 for provider default.
	MaxTokens int
}

// ToolCallUpdate describes one streaming change to an in-progress tool call.
type ToolCallUpdate struct {
	// ID is the stable identifier of the call being updated.
	ID string
	// Name is the tool name as known so far.
	Name string
	// ArgumentsDelta is the incremental argument text. Concatenating every
	// delta for one call in arrival order yields its complete argument JSON.
	ArgumentsDelta string
	// Complete is true when the call will receive no further updates.
	Complete bool
}

// ChunkResult is the decoder's per-chunk output.
type ChunkResult struct {
	// Content is the incremental display content decoded from this chunk.
	Content string
	// Reasoning is the incremental reasoning content decoded from this chunk.
	Reasoning string
	// HasToolCallUpdate is true when this chunk changed any tool call.
	HasToolCallUpdate bool
	// ToolCalls is a snapshot of all tool calls known so far, in-progress
	// calls included.
	ToolCalls []ai.ToolCall
	// Updates lists the individual tool-call changes from this chunk.
	Updates []ToolCallUpdate
}

// Engine is the polymorphic tool call engine contract.
type Engine interface {
	// Kind returns the variant tag.
	Kind() Kind

	// PreparePrompt injects tool descriptions and response-format
	// instructions into the system prompt when the variant cannot rely on
	// request-level tool schemas. Native returns instructions unchanged.
	PreparePrompt(instructions string, tools []ai.Tool) string

	// PrepareRequest shapes the outbound request for one iteration.
	PrepareRequest(req Request) ai.RequestParams

	// NewState allocates a fresh accumulator for one request.
	NewState() *State

	// ProcessChunk folds one transport chunk into the state and reports what
	// changed. It never fails: on malformed partial input it returns the
	// best-effort decoded content with HasToolCallUpdate false and leaves the
	// state valid for the next call.
	ProcessChunk(st *State, chunk ai.StreamChunk) ChunkResult

	// Finalize consumes the state into the finalized response. The state must
	// not be reused afterwards.
	Finalize(st *State) *ai.Response

	// AssistantMessage serializes a completed turn back into the conversation
	// format this variant expects.
	AssistantMessage(resp *ai.Response) ai.Message

	// ToolResultMessages serializes a turn's tool results back into the
	// conversation format this variant expects.
	ToolResultMessages(resp *ai.Response, results []ai.ToolResult) []ai.Message
}

// State is the per-request mutable accumulator. It is created fresh for each
// request, mutated by ProcessChunk, consumed once by Finalize, and never
// shared across requests or engines.
type State struct {
	// Content accumulates the raw streamed text.
	Content strings.Builder
	// Reasoning accumulates streamed reasoning content.
	Reasoning strings.Builder
	// Finish is the last observed raw finish signal from the transport.
	Finish string
	// Usage accumulates token usage reported by the transport.
	Usage ai.Usage
	// Cursor holds engine-specific decode state (e.g., the last successfully
	// parsed prefix). Owned entirely by the engine that created the state.
	Cursor any

	calls   []*CallState
	byIndex map[int]*CallState
}

// CallState is one in-progress tool call inside a State.
type CallState struct {
	ID       string
	Name     string
	Args     strings.Builder
	Complete bool
	// Invalid marks a call that could not be positively decoded; it is
	// excluded from snapshots and the finalized response.
	Invalid bool
}

// NewState allocates an empty accumulator.
func NewState() *State {
	return &State{byIndex: make(map[int]*CallState)}
}

// AddCall appends a new in-progress call and returns it.
func (s *State) AddCall(id, name string) *CallState {
	c := &CallState{ID: id, Name: name}
	s.calls = append(s.calls, c)
	return c
}

// CallAt returns the call correlated to a native per-response index,
// creating it on first sight. Native transports may omit id/name on
// continuation fragments; the index establishes identity.
func (s *State) CallAt(index int) *CallState {
	if c, ok := s.byIndex[index]; ok {
		return c
	}
	c := &CallState{}
	s.byIndex[index] = c
	s.calls = append(s.calls, c)
	return c
}

// Calls returns the in-progress calls: keyed-by-index calls sorted by index
// first, then appended calls in arrival order.
func (s *State) Calls() []*CallState {
	if len(s.byIndex) == 0 {
		return s.calls
	}
	indices := make([]int, 0, len(s.byIndex))
	for idx := range s.byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	indexed := make(map[*CallState]bool, len(s.byIndex))
	ordered := make([]*CallState, 0, len(s.calls))
	for _, idx := range indices {
		c := s.byIndex[idx]
		indexed[c] = true
		ordered = append(ordered, c)
	}
	for _, c := range s.calls {
		if !indexed[c] {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

// Snapshot returns the current tool-call list, skipping calls that never
// established an identity.
func (s *State) Snapshot() []ai.ToolCall {
	var out []ai.ToolCall
	for _, c := range s.Calls() {
		if c.Invalid || (c.ID == "" && c.Name == "") {
			continue
		}
		out = append(out, ai.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Args.String()})
	}
	return out
}

// finishReason resolves the finalized finish reason: once any tool call
// exists, the reason is tool_calls even if the transport reported stop.
func (s *State) finishReason(toolCalls []ai.ToolCall) ai.FinishReason {
	if len(toolCalls) > 0 {
		return ai.FinishToolCalls
	}
	return ai.NormalizeFinishReason(s.Finish)
}

var (
	regMu sync.RWMutex
	ctors = map[Kind]func() Engine{
		Native:            func() Engine { return &nativeEngine{} },
		PromptEngineering: func() Engine { return &promptEngine{} },
		StructuredOutputs: func() Engine { return &structuredEngine{} },
	}
)

// New constructs the engine for a kind. It consults the built-in variants and
// any constructors added with Register.
func New(kind Kind) (Engine, error) {
	regMu.RLock()
	ctor, ok := ctors[kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: unknown kind %q", kind)
	}
	return ctor(), nil
}

// Register adds a custom engine constructor. Returns an error if the kind is
// already taken.
func Register(kind Kind, ctor func() Engine) error {
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := ctors[kind]; exists {
		return fmt.Errorf("engine: kind %q already registered", kind)
	}
	ctors[kind] = ctor
	return nil
}

// describeTools renders tool definitions for inclusion in a system prompt.
// Shared by the variants that cannot use request-level schemas.
func describeTools(tools []ai.Tool) string {
	var b strings.Builder
	for _, t := range tools {
		b.WriteString("- ")
		b.WriteString(t.Name)
		if t.Description != "" {
			b.WriteString(": ")
			b.WriteString(t.Description)
		}
		if len(t.Parameters) > 0 {
			b.WriteString("\n  parameters (JSON Schema): ")
			b.Write(t.Parameters)
		}
		b.WriteString("\n")
	}
	return b.String()
}
