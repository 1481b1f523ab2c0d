package agui

import (
	"errors"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	ai "github.com/spetersoncode/cogs"
	"github.com/spetersoncode/cogs/event"
)

// Mapper converts stream events to AG-UI events. AG-UI wraps streaming text
// and tool calls in Start-Content-End lifecycles that the flat event stream
// does not carry, so the Mapper tracks which messages and tool calls are
// open and synthesizes the lifecycle events around the deltas.
//
// Create a new Mapper for each run. A Mapper is not safe for concurrent use.
type Mapper struct {
	threadID string
	runID    string

	openMessageID string
	openCalls     map[string]bool
}

// NewMapper creates a Mapper for a single run. Empty ids are generated.
func NewMapper(threadID, runID string) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if runID == "" {
		runID = events.GenerateRunID()
	}
	return &Mapper{
		threadID:  threadID,
		runID:     runID,
		openCalls: make(map[string]bool),
	}
}

// ThreadID returns the thread id for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// RunID returns the run id for this mapper.
func (m *Mapper) RunID() string {
	return m.runID
}

// MapEvent converts one stream event into zero or more AG-UI events.
func (m *Mapper) MapEvent(e event.Event) []events.Event {
	switch e.Type {
	case event.RunStart:
		return []events.Event{events.NewRunStartedEvent(m.threadID, m.runID)}

	case event.RunEnd:
		out := m.closeMessage()
		if e.Error != "" {
			return append(out, events.NewRunErrorEvent(e.Error))
		}
		return append(out, events.NewRunFinishedEvent(m.threadID, m.runID))

	case event.ContentDelta:
		var out []events.Event
		if m.openMessageID != e.MessageID {
			out = m.closeMessage()
			m.openMessageID = e.MessageID
			out = append(out, events.NewTextMessageStartEvent(
				e.MessageID,
				events.WithRole(RoleAssistant),
			))
		}
		return append(out, events.NewTextMessageContentEvent(e.MessageID, e.Content))

	case event.AssistantMessage, event.FinalAnswer:
		return m.closeMessage()

	case event.ToolCallUpdate:
		if e.ToolCall == nil {
			return nil
		}
		var out []events.Event
		if !m.openCalls[e.ToolCall.ID] {
			m.openCalls[e.ToolCall.ID] = true
			out = append(out, events.NewToolCallStartEvent(e.ToolCall.ID, e.ToolCall.Name))
		}
		if e.ToolCall.Arguments != "" {
			out = append(out, events.NewToolCallArgsEvent(e.ToolCall.ID, e.ToolCall.Arguments))
		}
		if e.Message == "complete" {
			delete(m.openCalls, e.ToolCall.ID)
			out = append(out, events.NewToolCallEndEvent(e.ToolCall.ID))
		}
		return out

	case event.ToolCall:
		if e.ToolCall == nil {
			return nil
		}
		// A call may reach execution without streaming updates (e.g. it was
		// decoded whole); make sure its lifecycle closed.
		if m.openCalls[e.ToolCall.ID] {
			delete(m.openCalls, e.ToolCall.ID)
			return []events.Event{events.NewToolCallEndEvent(e.ToolCall.ID)}
		}
		return nil

	case event.ToolResult:
		if e.ToolResult == nil {
			return nil
		}
		messageID := events.GenerateMessageID()
		return []events.Event{
			events.NewToolCallResultEvent(messageID, e.ToolResult.ToolCallID, e.ToolResult.Content),
		}

	case event.System:
		if e.Error != "" && e.FinishReason == ai.FinishError {
			return []events.Event{events.NewRunErrorEvent(e.Error)}
		}
		return nil

	default:
		return nil
	}
}

// RunError returns a RUN_ERROR event for failures outside the event stream.
func (m *Mapper) RunError(err error) events.Event {
	if err == nil {
		err = errors.New("unknown error")
	}
	return events.NewRunErrorEvent(err.Error())
}

func (m *Mapper) closeMessage() []events.Event {
	if m.openMessageID == "" {
		return nil
	}
	id := m.openMessageID
	m.openMessageID = ""
	return []events.Event{events.NewTextMessageEndEvent(id)}
}
