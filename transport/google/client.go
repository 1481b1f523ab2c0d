// Package google implements the Transport contract over the Google GenAI
// (Gemini) API.
package google

import (
	"context"
	"fmt"

	ai "github.com/spetersoncode/cogs"
	"google.golang.org/genai"
)

// DefaultModel is used when the request does not name one.
const DefaultModel = "gemini-2.5-flash"

// Transport streams generated content from Gemini.
type Transport struct {
	client *genai.Client
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
func New(ctx context.Context, apiKey string, opts ...Option) (*Transport, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	t := &Transport{
		client: client,
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Stream sends the shaped request and forwards each generated fragment as a
// chunk. Gemini delivers function calls whole rather than as argument
// fragments, so each one becomes a single complete tool-call delta.
func (t *Transport) Stream(ctx context.Context, params ai.RequestParams) (<-chan ai.StreamChunk, error) {
	model := params.Model
	if model == "" {
		model = t.model
	}

	contents, err := convertMessages(params.Messages)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{}
	if params.MaxTokens > 0 {
		config.MaxOutputTokens = int32(params.MaxTokens)
	}
	if params.Temperature != nil {
		temp := float32(*params.Temperature)
		config.Temperature = &temp
	}
	if len(params.Tools) > 0 {
		config.Tools = convertTools(params.Tools)
		if params.ToolChoice != "" {
			config.ToolConfig = convertToolChoice(params.ToolChoice)
		}
	}

	ch := make(chan ai.StreamChunk)

	go func() {
		defer close(ch)

		callIndex := 0
		for resp, err := range t.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				sendChunk(ctx, ch, ai.StreamChunk{Err: wrapError(err)})
				return
			}

			if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
				sendChunk(ctx, ch, ai.StreamChunk{
					Err: &BlockedError{Reason: string(resp.PromptFeedback.BlockReason)},
				})
				return
			}

			out, hasPayload := convertResponse(resp, &callIndex)
			if !hasPayload {
				continue
			}
			if !sendChunk(ctx, ch, out) {
				return
			}
		}
	}()

	return ch, nil
}

func convertResponse(resp *genai.GenerateContentResponse, callIndex *int) (ai.StreamChunk, bool) {
	var out ai.StreamChunk
	has := false

	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		if cand.FinishReason != "" {
			out.FinishReason = string(cand.FinishReason)
			has = true
		}
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				switch {
				case part.FunctionCall != nil:
					out.ToolCalls = append(out.ToolCalls, functionCallDelta(part.FunctionCall, *callIndex))
					*callIndex++
					has = true
				case part.Thought && part.Text != "":
					out.Reasoning += part.Text
					has = true
				case part.Text != "":
					out.Content += part.Text
					has = true
				}
			}
		}
	}

	if resp.UsageMetadata != nil {
		out.Usage = &ai.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
		has = true
	}

	return out, has
}

func sendChunk(ctx context.Context, ch chan<- ai.StreamChunk, chunk ai.StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// BlockedError indicates the request was blocked by content filtering.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("request blocked: %s", e.Reason)
}

var _ ai.Transport = (*Transport)(nil)
