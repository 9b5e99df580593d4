package graph

import (
	"context"
	"time"
)

// NodeEvent is the kind of a StreamEvent.
type NodeEvent string

const (
	NodeEventStart    NodeEvent = "start"
	NodeEventComplete NodeEvent = "complete"
	NodeEventError    NodeEvent = "error"
)

// StreamEvent describes one step of an invocation.
type StreamEvent[S any] struct {
	Timestamp time.Time
	ThreadID  string
	NodeName  string
	Event     NodeEvent
	// Step counts node executions within the invocation, starting at 1.
	Step int
	// State is the input state for start and error events and the merged
	// state for complete events.
	State    S
	Error    error
	Duration time.Duration
}

// NodeListener observes node events. Listeners run synchronously on the
// invoking goroutine and must not block for long.
type NodeListener[S any] interface {
	OnNodeEvent(ctx context.Context, event StreamEvent[S])
}

// NodeListenerFunc adapts a function to NodeListener.
type NodeListenerFunc[S any] func(ctx context.Context, event StreamEvent[S])

// OnNodeEvent implements NodeListener.
func (f NodeListenerFunc[S]) OnNodeEvent(ctx context.Context, event StreamEvent[S]) {
	f(ctx, event)
}

type listenerSet[S any] []NodeListener[S]

func (ls listenerSet[S]) emit(ctx context.Context, event StreamEvent[S]) {
	for _, l := range ls {
		l.OnNodeEvent(ctx, event)
	}
}
