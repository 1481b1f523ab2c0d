// Package anthropic implements the Transport contract over the Anthropic
// Messages API.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	ai "github.com/spetersoncode/cogs"
)

// DefaultModel is used when the request does not name one.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_5)

// defaultMaxTokens applies when the request does not cap output; the
// Messages API requires an explicit limit.
const defaultMaxTokens = 4096

// Transport streams messages from Anthropic.
type Transport struct {
	client *anthropic.Client
	model  string
}

// Option configures the transport.
type Option func(*Transport)

// WithModel sets the fallback model for requests that do not name one.
func WithModel(model string) Option {
	return func(t *Transport) {
		t.model = model
	}
}

// New creates a transport with the given API key.
func New(apiKey string, opts ...Option) *Transport {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	t := &Transport{
		client: &client,
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Stream sends the shaped request and forwards each SSE event as a chunk.
// Tool-use blocks map onto indexed tool-call deltas: the block-start event
// establishes id and name, input_json_delta events carry argument fragments.
func (t *Transport) Stream(ctx context.Context, params ai.RequestParams) (<-chan ai.StreamChunk, error) {
	req := t.buildParams(params)

	stream := t.client.Messages.NewStreaming(ctx, req)
	ch := make(chan ai.StreamChunk)

	go func() {
		defer close(ch)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			out, ok := convertEvent(event)
			if !ok {
				continue
			}
			select {
			case ch <- out:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case ch <- ai.StreamChunk{Err: wrapError(err)}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

func (t *Transport) buildParams(params ai.RequestParams) anthropic.MessageNewParams {
	model := params.Model
	if model == "" {
		model = t.model
	}
	maxTokens := int64(defaultMaxTokens)
	if params.MaxTokens > 0 {
		maxTokens = int64(params.MaxTokens)
	}

	msgs, system := convertMessages(params.Messages)
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		req.System = system
	}
	if params.Temperature != nil {
		req.Temperature = anthropic.Float(*params.Temperature)
	}
	if len(params.Tools) > 0 {
		req.Tools = convertTools(params.Tools)
		if params.ToolChoice != "" && params.ToolChoice != ai.ToolChoiceNone {
			req.ToolChoice = convertToolChoice(params.ToolChoice)
		}
	}
	return req
}

func convertEvent(event anthropic.MessageStreamEventUnion) (ai.StreamChunk, bool) {
	switch ev := event.AsAny().(type) {
	case anthropic.MessageStartEvent:
		return ai.StreamChunk{
			Usage: &ai.Usage{InputTokens: int(ev.Message.Usage.InputTokens)},
		}, true

	case anthropic.ContentBlockStartEvent:
		if ev.ContentBlock.Type != "tool_use" {
			return ai.StreamChunk{}, false
		}
		return ai.StreamChunk{
			ToolCalls: []ai.ToolCallDelta{{
				Index: int(ev.Index),
				ID:    ev.ContentBlock.ID,
				Name:  ev.ContentBlock.Name,
			}},
		}, true

	case anthropic.ContentBlockDeltaEvent:
		if text := ev.Delta.AsTextDelta(); text.Type == "text_delta" && text.Text != "" {
			return ai.StreamChunk{Content: text.Text}, true
		}
		if thinking := ev.Delta.AsThinkingDelta(); thinking.Type == "thinking_delta" && thinking.Thinking != "" {
			return ai.StreamChunk{Reasoning: thinking.Thinking}, true
		}
		if jd := ev.Delta.AsInputJSONDelta(); jd.Type == "input_json_delta" && jd.PartialJSON != "" {
			return ai.StreamChunk{
				ToolCalls: []ai.ToolCallDelta{{
					Index:          int(ev.Index),
					ArgumentsDelta: jd.PartialJSON,
				}},
			}, true
		}
		return ai.StreamChunk{}, false

	case anthropic.MessageDeltaEvent:
		return ai.StreamChunk{
			FinishReason: string(ev.Delta.StopReason),
			Usage:        &ai.Usage{OutputTokens: int(ev.Usage.OutputTokens)},
		}, true
	}

	return ai.StreamChunk{}, false
}

var _ ai.Transport = (*Transport)(nil)
