package agent

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Status describes a session's lifecycle state.
type Status string

const (
	// StatusIdle means no run is in progress.
	StatusIdle Status = "idle"

	// StatusExecuting means a run is in progress.
	StatusExecuting Status = "executing"

	// StatusAborted means the last run was cancelled by the caller.
	StatusAborted Status = "aborted"

	// StatusError means the last run ended with a transport error.
	StatusError Status = "error"
)

// Session scopes one agent execution: its id, iteration counter, status, and
// the abort signal bound for its lifetime. A session is created at run start
// and disposed at loop end.
type Session struct {
	id string

	mu        sync.Mutex
	status    Status
	iteration int
	cancel    context.CancelFunc
}

func newSession(parent context.Context) (*Session, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:     "session-" + uuid.New().String(),
		status: StatusExecuting,
		cancel: cancel,
	}, ctx
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Iteration returns the current iteration counter (1-indexed, 0 before the
// first iteration starts).
func (s *Session) Iteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration
}

// Abort cancels the session's bound context. The running loop observes the
// signal at its next checkpoint: iteration start, before the network call,
// and before each tool call.
func (s *Session) Abort() {
	s.cancel()
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *Session) advance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration++
	return s.iteration
}
