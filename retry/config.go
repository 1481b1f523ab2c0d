// Package retry wraps a transport with exponential backoff on transient
// stream-establishment failures.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Config controls the backoff schedule. The zero value of a field falls back
// to sane behavior: a zero Multiplier means a flat delay, and a zero MaxDelay
// means the delay is uncapped.
type Config struct {
	// MaxAttempts is the total number of attempts, counting the first
	// request as attempt 1.
	MaxAttempts int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay. Zero disables the cap.
	MaxDelay time.Duration

	// Multiplier grows the delay between consecutive retries. Values at or
	// below zero are treated as 1 (no growth).
	Multiplier float64

	// Jitter spreads retries by scaling the delay with a random factor in
	// [1-Jitter, 1+Jitter]. Zero disables jitter.
	Jitter float64
}

// DefaultConfig returns the schedule used when callers have no opinion:
// up to 10 attempts, 1s initial delay doubling to a 60s ceiling, 10% jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Disabled returns a single-attempt configuration.
func Disabled() Config {
	return Config{MaxAttempts: 1}
}

// Delay computes the wait after a failed attempt (0-indexed):
// InitialDelay * Multiplier^attempt, capped by MaxDelay when set, scaled by
// jitter when set.
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	mult := c.Multiplier
	if mult <= 0 {
		mult = 1
	}

	delay := float64(c.InitialDelay) * math.Pow(mult, float64(attempt))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.Jitter > 0 {
		delay *= 1 + (rand.Float64()*2-1)*c.Jitter
	}

	return time.Duration(delay)
}
