// Package agent runs multi-turn tool-calling conversations: a loop runner
// drives the model through a tool call engine, executes the resulting tool
// calls, and records everything on an event stream.
package agent

import (
	"context"
	"log/slog"
	"sync"

	ai "github.com/spetersoncode/cogs"
	"github.com/spetersoncode/cogs/engine"
	"github.com/spetersoncode/cogs/event"
	"github.com/spetersoncode/cogs/tool"
)

// Runner is the top-level loop: iteration by iteration it rebuilds the
// conversation from the event log, sends one request through the bound
// engine, executes any tool calls the response carries, and decides whether
// to go again. Exactly one engine instance is bound for the duration of a
// run.
type Runner struct {
	transport ai.Transport
	tools     tool.Source
	engine    engine.Engine

	model        string
	temperature  *float64
	maxTokens    int
	instructions string

	maxIterations int
	maxImages     int
	hooks         Hooks
	log           *slog.Logger
	events        *event.Stream

	// runMu serializes runs: the event log and the session are per-run state.
	runMu sync.Mutex
}

// New creates a runner over a transport and a tool source. A nil source
// means no tools. The decode engine defaults to native function calling.
func New(transport ai.Transport, tools tool.Source, opts ...Option) *Runner {
	r := &Runner{
		transport:     transport,
		tools:         tools,
		maxIterations: DefaultMaxIterations,
		maxImages:     DefaultMaxImages,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tools == nil {
		r.tools = tool.NewRegistry()
	}
	if r.engine == nil {
		r.engine = mustEngine(engine.Native)
	}
	if r.events == nil {
		r.events = event.NewStream()
	}
	return r
}

func mustEngine(kind engine.Kind) engine.Engine {
	e, err := engine.New(kind)
	if err != nil {
		panic(err)
	}
	return e
}

// Events returns the runner's event stream.
func (r *Runner) Events() *event.Stream { return r.events }

// Engine returns the bound decode engine.
func (r *Runner) Engine() engine.Engine { return r.engine }

// Run is a handle to an in-flight execution started with ExecuteStream.
type Run struct {
	session *Session
	sub     *event.Subscription

	done chan struct{}
	resp *ai.Response
	err  error
}

// Session returns the run's session.
func (run *Run) Session() *Session { return run.session }

// Events returns the channel of events emitted during this run, in append
// order. The channel is closed when the run ends.
func (run *Run) Events() <-chan event.Event { return run.sub.Events() }

// Abort cancels the run. The loop observes the signal at its next
// checkpoint.
func (run *Run) Abort() { run.session.Abort() }

// Wait blocks until the run ends and returns its final response.
func (run *Run) Wait() (*ai.Response, error) {
	<-run.done
	return run.resp, run.err
}

// Execute runs the loop to completion and returns the final response.
func (r *Runner) Execute(ctx context.Context, messages ...ai.Message) (*ai.Response, error) {
	return r.ExecuteStream(ctx, messages...).Wait()
}

// ExecuteStream starts the loop and returns immediately with a handle the
// caller can use to consume events as they happen, abort, and await the
// final response.
func (r *Runner) ExecuteStream(ctx context.Context, messages ...ai.Message) *Run {
	session, runCtx := newSession(ctx)
	run := &Run{
		session: session,
		sub:     r.events.Subscribe(),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(run.done)
		defer run.sub.Cancel()

		r.runMu.Lock()
		defer r.runMu.Unlock()

		run.resp, run.err = r.run(runCtx, session, messages)
	}()

	return run
}

func (r *Runner) run(ctx context.Context, session *Session, input []ai.Message) (resp *ai.Response, err error) {
	log := r.log.With("session", session.ID())
	var usage ai.Usage

	start := r.events.CreateEvent(event.RunStart)
	start.Message = string(r.engine.Kind())
	r.events.Send(start)

	// The end-of-loop hook and the terminal event fire exactly once, on
	// every exit path.
	defer func() {
		switch {
		case err != nil && ai.IsAbort(err):
			session.setStatus(StatusAborted)
		case err != nil:
			session.setStatus(StatusError)
		default:
			session.setStatus(StatusIdle)
		}

		end := r.events.CreateEvent(event.RunEnd)
		end.Iteration = session.Iteration()
		end.Response = resp
		end.Usage = &usage
		if resp != nil {
			end.FinishReason = resp.FinishReason
		}
		if err != nil {
			end.FinishReason = ai.FinishReasonForError(err)
			end.Error = err.Error()
		}
		r.events.Send(end)

		r.hooks.loopEnd(ctx, log, resp, err)
		log.Debug("run ended", "iterations", session.Iteration(), "finish", end.FinishReason, "error", end.Error)
	}()

	for _, m := range input {
		ev := r.events.CreateEvent(event.UserMessage)
		ev.MessageID = m.ID
		ev.Content = m.Content
		ev.Parts = m.Parts
		r.events.Send(ev)
	}

	builder := &historyBuilder{engine: r.engine, maxImages: r.maxImages}
	proc := &processor{source: r.tools, hooks: r.hooks, log: log, events: r.events}

	for session.Iteration() < r.maxIterations {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}

		iteration := session.advance()
		log.Debug("iteration start", "iteration", iteration)
		r.hooks.iterationStart(ctx, log, iteration)

		instructions, tools := r.hooks.prepareRequest(ctx, log, r.instructions, r.tools.Tools())

		req := engine.Request{
			Model:        r.model,
			Instructions: r.engine.PreparePrompt(instructions, tools),
			Messages:     builder.build(r.events.Events(nil, 0)),
			Tools:        tools,
			Temperature:  r.temperature,
			MaxTokens:    r.maxTokens,
		}
		if req.Instructions != "" {
			req.Messages = append([]ai.Message{ai.NewSystemMessage(req.Instructions)}, req.Messages...)
		}
		r.hooks.request(ctx, log, &req)

		if ctx.Err() != nil {
			return resp, ctx.Err()
		}

		iterResp, iterErr := r.requestOnce(ctx, iteration, req)
		if iterResp != nil {
			usage.Add(iterResp.Usage)
		}
		if iterErr != nil {
			return resp, iterErr
		}
		resp = iterResp
		r.hooks.response(ctx, log, resp)

		if len(resp.ToolCalls) > 0 {
			proc.run(ctx, iteration, resp.ToolCalls)
		}

		if r.hooks.shouldTerminate(ctx, log, resp) {
			final := r.events.CreateEvent(event.FinalAnswer)
			final.Iteration = iteration
			final.Content = resp.Content
			final.Response = resp
			final.FinishReason = resp.FinishReason
			r.events.Send(final)
			return resp, nil
		}
	}

	log.Warn("iteration limit reached", "max", r.maxIterations)
	return resp, nil
}

// requestOnce performs one shaped request/response cycle: send, decode each
// chunk into streaming events, finalize. A transport failure is terminal for
// the run; the partially decoded state is still finalized so the event log
// records what arrived before the failure.
func (r *Runner) requestOnce(ctx context.Context, iteration int, req engine.Request) (*ai.Response, error) {
	params := r.engine.PrepareRequest(req)

	ch, err := r.transport.Stream(ctx, params)
	if err != nil {
		r.sendFailure(iteration, err)
		return nil, err
	}

	st := r.engine.NewState()
	messageID := ai.GenerateMessageID()

	var streamErr error
	for chunk := range ch {
		if chunk.Err != nil {
			streamErr = chunk.Err
			break
		}
		res := r.engine.ProcessChunk(st, chunk)
		r.sendDeltas(iteration, messageID, res)
	}

	resp := r.engine.Finalize(st)

	if streamErr != nil {
		resp.FinishReason = ai.FinishReasonForError(streamErr)
		r.sendFailure(iteration, streamErr)
		return resp, streamErr
	}

	ev := r.events.CreateEvent(event.AssistantMessage)
	ev.Iteration = iteration
	ev.MessageID = messageID
	ev.Content = resp.Content
	ev.Reasoning = resp.Reasoning
	ev.Response = resp
	ev.FinishReason = resp.FinishReason
	r.events.Send(ev)

	return resp, nil
}

func (r *Runner) sendDeltas(iteration int, messageID string, res engine.ChunkResult) {
	if res.Content != "" {
		ev := r.events.CreateEvent(event.ContentDelta)
		ev.Iteration = iteration
		ev.MessageID = messageID
		ev.Content = res.Content
		r.events.Send(ev)
	}
	if res.Reasoning != "" {
		ev := r.events.CreateEvent(event.ReasoningDelta)
		ev.Iteration = iteration
		ev.MessageID = messageID
		ev.Reasoning = res.Reasoning
		r.events.Send(ev)
	}
	for _, upd := range res.Updates {
		ev := r.events.CreateEvent(event.ToolCallUpdate)
		ev.Iteration = iteration
		ev.MessageID = messageID
		ev.ToolCall = &ai.ToolCall{ID: upd.ID, Name: upd.Name, Arguments: upd.ArgumentsDelta}
		if upd.Complete {
			ev.Message = "complete"
		}
		r.events.Send(ev)
	}
}

func (r *Runner) sendFailure(iteration int, err error) {
	ev := r.events.CreateEvent(event.System)
	ev.Iteration = iteration
	ev.FinishReason = ai.FinishReasonForError(err)
	ev.Error = err.Error()
	r.events.Send(ev)
}
