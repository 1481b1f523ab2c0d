package cogs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	t.Run("transient", func(t *testing.T) {
		err := NewTransientError("rate limited", 429, nil)
		assert.Equal(t, ErrorTransient, err.Category())
		assert.True(t, err.Retryable())
		assert.Equal(t, 429, err.StatusCode())
		assert.True(t, IsTransient(err))
		assert.False(t, IsPermanent(err))
	})

	t.Run("permanent", func(t *testing.T) {
		err := NewPermanentError("invalid api key", 401, nil)
		assert.Equal(t, ErrorPermanent, err.Category())
		assert.False(t, err.Retryable())
		assert.True(t, IsPermanent(err))
		assert.False(t, IsTransient(err))
	})

	t.Run("user input", func(t *testing.T) {
		err := NewUserInputError("bad request", 400, nil)
		assert.Equal(t, ErrorUserInput, err.Category())
		assert.False(t, err.Retryable())
	})
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransientError("request failed", 503, cause)

	assert.Equal(t, "request failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	t.Run("category survives wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("outer: %w", err)
		assert.True(t, IsTransient(wrapped))
		assert.Equal(t, 503, StatusCodeOf(wrapped))
	})
}

func TestRetryAfter(t *testing.T) {
	err := NewTransientErrorWithRetry("rate limited", 429, 30*time.Second, nil)
	assert.Equal(t, 30*time.Second, err.RetryAfter())
	assert.Equal(t, 30*time.Second, RetryAfterOf(fmt.Errorf("wrap: %w", err)))
	assert.Equal(t, time.Duration(0), RetryAfterOf(errors.New("plain")))
}

func TestIsAbort(t *testing.T) {
	assert.True(t, IsAbort(context.Canceled))
	assert.True(t, IsAbort(fmt.Errorf("stream: %w", context.DeadlineExceeded)))
	assert.False(t, IsAbort(errors.New("boom")))
	assert.False(t, IsAbort(NewTransientError("overloaded", 529, nil)))
}

func TestFinishReasonForError(t *testing.T) {
	assert.Equal(t, FinishAbort, FinishReasonForError(context.Canceled))
	assert.Equal(t, FinishError, FinishReasonForError(errors.New("boom")))
}
