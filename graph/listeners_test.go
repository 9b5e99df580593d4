package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []StreamEvent[counterState]
}

func (r *recorder) OnNodeEvent(_ context.Context, ev StreamEvent[counterState]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.NodeName+":"+string(ev.Event))
	}
	return out
}

func twoStepGraph(t *testing.T, fail bool) *StateGraph[counterState] {
	t.Helper()
	g := NewStateGraph[counterState]()
	g.AddNode("a", "", visit("a"))
	g.AddNode("b", "", func(ctx context.Context, s counterState) (counterState, error) {
		if fail {
			return s, errors.New("b failed")
		}
		return visit("b")(ctx, s)
	})
	g.AddEdge(START, "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	return g
}

func TestListeners_CompileTimeAndPerRunnable(t *testing.T) {
	compiled := &recorder{}
	extra := &recorder{}

	app, err := twoStepGraph(t, false).Compile(WithListener[counterState](compiled))
	require.NoError(t, err)

	_, err = app.WithListeners(extra).InvokeWithConfig(context.Background(), counterState{}, &Config{ThreadID: "t1"})
	require.NoError(t, err)

	want := []string{"a:start", "a:complete", "b:start", "b:complete"}
	assert.Equal(t, want, compiled.kinds())
	assert.Equal(t, want, extra.kinds())

	last := extra.events[3]
	assert.Equal(t, 2, last.Step)
	assert.Equal(t, "t1", last.ThreadID)
	assert.Equal(t, 2, last.State.Count)

	// the original runnable is not affected by WithListeners
	_, err = app.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Len(t, extra.events, 4)
	assert.Len(t, compiled.events, 8)
}

func TestListeners_ErrorEvent(t *testing.T) {
	rec := &recorder{}
	app, err := twoStepGraph(t, true).Compile(WithListener[counterState](rec))
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), counterState{})
	require.Error(t, err)
	assert.Equal(t, []string{"a:start", "a:complete", "b:start", "b:error"}, rec.kinds())
	assert.EqualError(t, rec.events[3].Error, "b failed")
}

func TestListenerFunc(t *testing.T) {
	var names []string
	fn := NodeListenerFunc[counterState](func(_ context.Context, ev StreamEvent[counterState]) {
		if ev.Event == NodeEventComplete {
			names = append(names, ev.NodeName)
		}
	})
	app, err := twoStepGraph(t, false).Compile(WithListener[counterState](fn))
	require.NoError(t, err)
	_, err = app.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}
