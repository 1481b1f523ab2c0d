package agent

import (
	"fmt"

	ai "github.com/spetersoncode/cogs"
	"github.com/spetersoncode/cogs/engine"
	"github.com/spetersoncode/cogs/event"
)

// historyBuilder projects the event log into the role-tagged message
// sequence the bound engine expects. Different engine variants serialize
// assistant turns and tool results differently, so the projection runs
// through the engine's own serializers rather than storing messages
// directly.
type historyBuilder struct {
	engine    engine.Engine
	maxImages int
}

// build walks the log in append order. User messages pass through as-is;
// each finalized assistant turn is serialized by the engine, and the tool
// results that followed it are serialized as a batch once the turn's results
// are complete.
func (b *historyBuilder) build(events []event.Event) []ai.Message {
	var messages []ai.Message

	var pending *ai.Response
	var pendingResults []ai.ToolResult

	flush := func() {
		if pending == nil {
			return
		}
		messages = append(messages, b.engine.AssistantMessage(pending))
		if len(pendingResults) > 0 {
			messages = append(messages, b.engine.ToolResultMessages(pending, pendingResults)...)
		}
		pending = nil
		pendingResults = nil
	}

	for _, e := range events {
		switch e.Type {
		case event.UserMessage:
			flush()
			messages = append(messages, ai.Message{
				ID:      e.MessageID,
				Role:    ai.RoleUser,
				Content: e.Content,
				Parts:   e.Parts,
			})
		case event.AssistantMessage:
			flush()
			if e.Response != nil {
				pending = e.Response
			}
		case event.ToolResult:
			if pending != nil && e.ToolResult != nil {
				pendingResults = append(pendingResults, *e.ToolResult)
			}
		}
	}
	flush()

	return capImages(messages, b.maxImages)
}

// capImages keeps the most recent max image parts across the history and
// replaces older ones with a text placeholder, preserving positional context
// without the token cost of the image itself. Part slices are shared with
// the event log, so a message is copied before any part is replaced.
func capImages(messages []ai.Message, max int) []ai.Message {
	kept := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if !messages[i].HasParts() {
			continue
		}
		copied := false
		for j := len(messages[i].Parts) - 1; j >= 0; j-- {
			part := messages[i].Parts[j]
			if part.Type != ai.ContentPartTypeImage {
				continue
			}
			if kept < max {
				kept++
				continue
			}
			if !copied {
				messages[i].Parts = append([]ai.ContentPart(nil), messages[i].Parts...)
				copied = true
			}
			messages[i].Parts[j] = ai.NewTextPart(imagePlaceholder(part))
		}
	}
	return messages
}

func imagePlaceholder(part ai.ContentPart) string {
	switch {
	case part.ImageURL != "":
		return fmt.Sprintf("[image omitted: %s]", part.ImageURL)
	case part.MimeType != "":
		return fmt.Sprintf("[image omitted: %s]", part.MimeType)
	default:
		return "[image omitted]"
	}
}
