package event

import (
	"sync"
)

// subscriberBuffer is the per-subscription channel capacity. A subscriber
// that falls this far behind starts losing events rather than blocking the
// producer.
const subscriberBuffer = 256

// Stream is an append-only, in-memory event log with subscriptions. Events
// are delivered to subscribers in append order; a slow subscriber never
// blocks the appender.
//
// A Stream belongs to exactly one session. It is safe for concurrent use,
// but there is a single writer in practice: the loop runner.
type Stream struct {
	mu        sync.RWMutex
	events    []Event
	subs      map[uint64]*Subscription
	nextSubID uint64
	maxEvents int
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithMaxEvents bounds the retained log; the oldest events are evicted first
// once the bound is exceeded. Zero (the default) retains everything.
func WithMaxEvents(n int) StreamOption {
	return func(s *Stream) {
		s.maxEvents = n
	}
}

// NewStream creates an empty event stream.
func NewStream(opts ...StreamOption) *Stream {
	s := &Stream{
		subs: make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEvent creates an event of the given type, stamped with id and
// timestamp, without appending it. Shorthand for New.
func (s *Stream) CreateEvent(t Type) Event {
	return New(t)
}

// Send appends an event and notifies subscribers in append order.
// Events without an ID get one stamped.
func (s *Stream) Send(e Event) Event {
	if e.ID == "" {
		e = mergeIdentity(e)
	}

	s.mu.Lock()
	s.events = append(s.events, e)
	if s.maxEvents > 0 && len(s.events) > s.maxEvents {
		drop := len(s.events) - s.maxEvents
		s.events = append([]Event(nil), s.events[drop:]...)
	}
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(e)
	}
	return e
}

func mergeIdentity(e Event) Event {
	stamped := New(e.Type)
	stamped.Iteration = e.Iteration
	stamped.MessageID = e.MessageID
	stamped.Content = e.Content
	stamped.Parts = e.Parts
	stamped.Reasoning = e.Reasoning
	stamped.Message = e.Message
	stamped.Response = e.Response
	stamped.ToolCall = e.ToolCall
	stamped.ToolResult = e.ToolResult
	stamped.FinishReason = e.FinishReason
	stamped.Error = e.Error
	stamped.Usage = e.Usage
	return stamped
}

// Filter selects events from the log.
type Filter func(Event) bool

// ByType returns a filter matching any of the given types.
func ByType(types ...Type) Filter {
	set := make(map[Type]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(e Event) bool {
		_, ok := set[e.Type]
		return ok
	}
}

// Events returns a copy of the log, optionally filtered. limit > 0 caps the
// result to the most recent matching events.
func (s *Stream) Events(filter Filter, limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if filter == nil || filter(e) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len returns the number of retained events.
func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Subscription is a handle to a stream subscription. Cancel it when done;
// the event channel is closed on cancellation.
type Subscription struct {
	id     uint64
	stream *Stream
	filter Filter
	ch     chan Event

	mu     sync.Mutex
	closed bool
}

// Events returns the channel delivering matching events in append order.
func (sub *Subscription) Events() <-chan Event {
	return sub.ch
}

// Cancel removes the subscription and closes its channel. Safe to call more
// than once.
func (sub *Subscription) Cancel() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	close(sub.ch)
	sub.mu.Unlock()

	sub.stream.mu.Lock()
	delete(sub.stream.subs, sub.id)
	sub.stream.mu.Unlock()
}

func (sub *Subscription) deliver(e Event) {
	if sub.filter != nil && !sub.filter(e) {
		return
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	select {
	case sub.ch <- e:
	default:
		// Buffer full: the subscriber is too slow, drop rather than block.
	}
}

// Subscribe registers a subscriber for every event.
func (s *Stream) Subscribe() *Subscription {
	return s.subscribe(nil)
}

// SubscribeTypes registers a subscriber scoped to the given event types.
func (s *Stream) SubscribeTypes(types ...Type) *Subscription {
	return s.subscribe(ByType(types...))
}

// SubscribeStreaming registers a subscriber receiving only streaming delta
// events.
func (s *Stream) SubscribeStreaming() *Subscription {
	return s.subscribe(func(e Event) bool { return e.IsStreaming() })
}

func (s *Stream) subscribe(filter Filter) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	sub := &Subscription{
		id:     s.nextSubID,
		stream: s,
		filter: filter,
		ch:     make(chan Event, subscriberBuffer),
	}
	s.subs[sub.id] = sub
	return sub
}
