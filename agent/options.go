package agent

import (
	"log/slog"

	"github.com/spetersoncode/cogs/engine"
	"github.com/spetersoncode/cogs/event"
)

// DefaultMaxIterations bounds the loop when no explicit limit is configured.
const DefaultMaxIterations = 10

// DefaultMaxImages caps how many image parts survive into a rebuilt history.
const DefaultMaxImages = 4

// Option configures a Runner.
type Option func(*Runner)

// WithEngine sets the decode engine directly.
func WithEngine(e engine.Engine) Option {
	return func(r *Runner) { r.engine = e }
}

// WithEngineKind selects the decode engine by kind. Unknown kinds fall back
// to the native engine.
func WithEngineKind(kind engine.Kind) Option {
	return func(r *Runner) {
		if e, err := engine.New(kind); err == nil {
			r.engine = e
		}
	}
}

// WithMaxIterations bounds how many model round trips a run may take.
// Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(r *Runner) {
		if n >= 1 {
			r.maxIterations = n
		}
	}
}

// WithModel sets the model identifier passed to the transport.
func WithModel(model string) Option {
	return func(r *Runner) { r.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(r *Runner) { r.temperature = &t }
}

// WithMaxTokens caps the tokens generated per iteration.
func WithMaxTokens(n int) Option {
	return func(r *Runner) { r.maxTokens = n }
}

// WithInstructions sets the system instructions prepended to every request.
func WithInstructions(instructions string) Option {
	return func(r *Runner) { r.instructions = instructions }
}

// WithHooks installs loop extension points.
func WithHooks(h Hooks) Option {
	return func(r *Runner) { r.hooks = h }
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithEventStream attaches an existing event stream instead of creating a
// fresh one per runner. Useful when several runners feed one consumer.
func WithEventStream(s *event.Stream) Option {
	return func(r *Runner) {
		if s != nil {
			r.events = s
		}
	}
}

// WithMaxImages caps image parts carried into rebuilt histories. Older
// images are replaced with a text placeholder. Zero disables images
// entirely; negative values are ignored.
func WithMaxImages(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxImages = n
		}
	}
}
