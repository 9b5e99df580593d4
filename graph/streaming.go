package graph

import "context"

// StreamResult carries the events of a streaming invocation and its outcome.
// Events is closed when the invocation finishes; drain it before calling
// Result, or cancel the context.
type StreamResult[S any] struct {
	Events <-chan StreamEvent[S]

	done  chan struct{}
	state S
	err   error
}

// Result blocks until the invocation finishes.
func (r *StreamResult[S]) Result() (S, error) {
	<-r.done
	return r.state, r.err
}

// Done is closed when the invocation has finished.
func (r *StreamResult[S]) Done() <-chan struct{} {
	return r.done
}

// Stream runs the graph in a goroutine and publishes every node event.
func (r *Runnable[S]) Stream(ctx context.Context, input S, cfg *Config) *StreamResult[S] {
	events := make(chan StreamEvent[S], 16)
	res := &StreamResult[S]{Events: events, done: make(chan struct{})}

	forward := NodeListenerFunc[S](func(ctx context.Context, ev StreamEvent[S]) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})

	go func() {
		defer close(res.done)
		defer close(events)
		res.state, res.err = r.run(ctx, input, cfg, []NodeListener[S]{forward})
	}()
	return res
}
