package retry

import (
	"context"
	"log/slog"

	ai "github.com/spetersoncode/cogs"
)

// Transport wraps another transport with retry on stream establishment.
// Only the connection attempt is retried: once chunks are flowing, a
// mid-stream failure is surfaced as-is, since replaying a partially
// consumed response would duplicate deltas downstream.
type Transport struct {
	next ai.Transport
	cfg  Config
	log  *slog.Logger
}

// TransportOption configures the wrapper.
type TransportOption func(*Transport)

// WithLogger sets the logger used for retry attempts.
func WithLogger(log *slog.Logger) TransportOption {
	return func(t *Transport) {
		if log != nil {
			t.log = log
		}
	}
}

// NewTransport wraps next with the given retry configuration.
func NewTransport(next ai.Transport, cfg Config, opts ...TransportOption) *Transport {
	t := &Transport{
		next: next,
		cfg:  cfg,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Stream establishes the underlying stream, retrying transient failures
// with exponential backoff.
func (t *Transport) Stream(ctx context.Context, params ai.RequestParams) (<-chan ai.StreamChunk, error) {
	attempt := 0
	return DoStream(ctx, t.cfg, func() (<-chan ai.StreamChunk, error) {
		attempt++
		ch, err := t.next.Stream(ctx, params)
		if err != nil && IsTransient(err) {
			t.log.Warn("transient stream failure", "attempt", attempt, "error", err)
		}
		return ch, err
	})
}

var _ ai.Transport = (*Transport)(nil)
