// Package openai implements the Transport contract over the OpenAI chat
// completions API, including OpenAI-compatible servers via WithBaseURL.
package openai

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	ai "github.com/spetersoncode/cogs"
)

// DefaultModel is used when the request does not name one.
const DefaultModel = openai.ChatModelGPT4o

// Transport streams chat completions from OpenAI.
type Transport struct {
	client *openai.Client
	model  string
}

// Option configures the transport.
type Option func(*Transport, *[]option.RequestOption)

// WithModel sets the fallback model for requests that do not name one.
func WithModel(model string) Option {
	return func(t *Transport, _ *[]option.RequestOption) {
		t.model = model
	}
}

// WithBaseURL points the transport at an OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return func(_ *Transport, reqOpts *[]option.RequestOption) {
		*reqOpts = append(*reqOpts, option.WithBaseURL(url))
	}
}

// New creates a transport with the given API key.
func New(apiKey string, opts ...Option) *Transport {
	t := &Transport{model: DefaultModel}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, opt := range opts {
		opt(t, &reqOpts)
	}
	client := openai.NewClient(reqOpts...)
	t.client = &client
	return t
}

// Stream sends the shaped request and forwards each SSE chunk as it arrives.
// The returned channel is closed when the response completes or fails; a
// failure is delivered as a final chunk with Err set.
func (t *Transport) Stream(ctx context.Context, params ai.RequestParams) (<-chan ai.StreamChunk, error) {
	req, err := t.buildParams(params)
	if err != nil {
		return nil, err
	}

	stream := t.client.Chat.Completions.NewStreaming(ctx, req)
	ch := make(chan ai.StreamChunk)

	go func() {
		defer close(ch)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			out, ok := convertChunk(chunk)
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

func (t *Transport) buildParams(params ai.RequestParams) (openai.ChatCompletionNewParams, error) {
	model := params.Model
	if model == "" {
		model = t.model
	}

	messages, err := convertMessages(params.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	req := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(params.MaxTokens))
	}
	if params.Temperature != nil {
		req.Temperature = openai.Float(*params.Temperature)
	}
	if len(params.Tools) > 0 {
		req.Tools = convertTools(params.Tools)
		if params.ToolChoice != "" {
			req.ToolChoice = convertToolChoice(params.ToolChoice)
		}
	}
	return req, nil
}

func convertChunk(chunk openai.ChatCompletionChunk) (ai.StreamChunk, bool) {
	var out ai.StreamChunk
	has := false

	if chunk.Usage.TotalTokens > 0 {
		out.Usage = &ai.Usage{
			InputTokens:  int(chunk.Usage.PromptTokens),
			OutputTokens: int(chunk.Usage.CompletionTokens),
		}
		has = true
	}

	for _, choice := range chunk.Choices {
		if choice.FinishReason != "" {
			out.FinishReason = string(choice.FinishReason)
			has = true
		}
		if choice.Delta.Content != "" {
			out.Content += choice.Delta.Content
			has = true
		}
		if rc := extractReasoning(choice.Delta.RawJSON()); rc != "" {
			out.Reasoning += rc
			has = true
		}
		for _, tc := range choice.Delta.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ai.ToolCallDelta{
				Index:          int(tc.Index),
				ID:             tc.ID,
				Name:           tc.Function.Name,
				ArgumentsDelta: tc.Function.Arguments,
			})
			has = true
		}
	}

	return out, has
}

// extractReasoning pulls reasoning_content out of the raw delta JSON.
// Thinking models emit it as a non-standard field the SDK does not surface.
func extractReasoning(raw string) string {
	if raw == "" {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return ""
	}
	rc, ok := fields["reasoning_content"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(rc, &s); err != nil {
		return ""
	}
	return s
}

var _ ai.Transport = (*Transport)(nil)
