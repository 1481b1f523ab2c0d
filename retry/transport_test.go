package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/cogs"
)

// flakyTransport fails its first n Stream calls, then succeeds.
type flakyTransport struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	chunks   []ai.StreamChunk
}

func (f *flakyTransport) Stream(ctx context.Context, params ai.RequestParams) (<-chan ai.StreamChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}

	ch := make(chan ai.StreamChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (f *flakyTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestTransport_RetriesTransientFailures(t *testing.T) {
	inner := &flakyTransport{
		failures: 2,
		err:      ai.NewTransientError("overloaded", 529, nil),
		chunks:   []ai.StreamChunk{{Content: "hi"}, {FinishReason: "stop"}},
	}
	transport := NewTransport(inner, fastConfig(5))

	ch, err := transport.Stream(context.Background(), ai.RequestParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.callCount())

	var content string
	for chunk := range ch {
		content += chunk.Content
	}
	assert.Equal(t, "hi", content)
}

func TestTransport_PermanentFailureNotRetried(t *testing.T) {
	inner := &flakyTransport{
		failures: 10,
		err:      ai.NewPermanentError("invalid api key", 401, nil),
	}
	transport := NewTransport(inner, fastConfig(5))

	_, err := transport.Stream(context.Background(), ai.RequestParams{})
	require.Error(t, err)
	assert.Equal(t, 1, inner.callCount())
}

func TestTransport_ExhaustsAttempts(t *testing.T) {
	cause := ai.NewTransientError("overloaded", 529, nil)
	inner := &flakyTransport{failures: 10, err: cause}
	transport := NewTransport(inner, fastConfig(3))

	_, err := transport.Stream(context.Background(), ai.RequestParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, inner.callCount())
}

func TestTransport_AbortDuringBackoff(t *testing.T) {
	inner := &flakyTransport{
		failures: 10,
		err:      ai.NewTransientError("overloaded", 529, nil),
	}
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 2.0}
	transport := NewTransport(inner, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := transport.Stream(ctx, ai.RequestParams{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "cancellation must cut the backoff wait short")
}

func TestTransport_MidStreamFailureNotRetried(t *testing.T) {
	// A failure after chunks started flowing is delivered, not retried:
	// replaying a partially consumed response would duplicate deltas.
	inner := &flakyTransport{chunks: []ai.StreamChunk{
		{Content: "partial"},
		{Err: errors.New("connection reset")},
	}}
	transport := NewTransport(inner, fastConfig(5))

	ch, err := transport.Stream(context.Background(), ai.RequestParams{})
	require.NoError(t, err)

	var sawErr bool
	for chunk := range ch {
		if chunk.Err != nil {
			sawErr = true
		}
	}
	assert.True(t, sawErr)
	assert.Equal(t, 1, inner.callCount())
}

func TestDoHonorsServerRetryAfter(t *testing.T) {
	cfg := Config{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 1.0}
	suggested := 50 * time.Millisecond

	calls := 0
	start := time.Now()
	_, err := Do(context.Background(), cfg, func() (int, error) {
		calls++
		if calls == 1 {
			return 0, ai.NewTransientErrorWithRetry("rate limited", 429, suggested, nil)
		}
		return 42, nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, elapsed, suggested, "server-suggested delay must override a smaller backoff")
}
