package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	Count int
	Path  []string
}

func visit(name string) NodeFunc[counterState] {
	return func(_ context.Context, s counterState) (counterState, error) {
		s.Count++
		s.Path = AppendSlice(s.Path, []string{name})
		return s, nil
	}
}

func TestStateGraph_LinearInvoke(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "first", visit("a"))
	g.AddNode("b", "second", visit("b"))
	g.AddEdge(START, "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", END)

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, []string{"a", "b"}, out.Path)
}

func TestStateGraph_ConditionalLoop(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("step", "loop body", visit("step"))
	g.AddNode("done", "wrap up", visit("done"))
	g.SetEntryPoint("step")
	g.AddConditionalEdge("step", func(_ context.Context, s counterState) string {
		if s.Count < 4 {
			return "again"
		}
		return "finish"
	}, map[string]string{"again": "step", "finish": "done"})
	g.AddEdge("done", END)

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"step", "step", "step", "step", "done"}, out.Path)
}

func TestStateGraph_ConditionalWithoutPathMap(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("router", "", visit("router"))
	g.AddNode("x", "", visit("x"))
	g.AddEdge(START, "router")
	g.AddConditionalEdge("router", func(context.Context, counterState) string { return "x" }, nil)
	g.AddEdge("x", END)

	app, err := g.Compile()
	require.NoError(t, err)
	out, err := app.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"router", "x"}, out.Path)
}

func TestStateGraph_CompileValidation(t *testing.T) {
	noop := visit("n")

	t.Run("entry point missing", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "", noop)
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrEntryPointNotSet)
	})

	t.Run("unknown entry point", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.SetEntryPoint("ghost")
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("unknown edge target", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "", noop)
		g.AddEdge(START, "a")
		g.AddEdge("a", "ghost")
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("unknown path map target", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "", noop)
		g.AddEdge(START, "a")
		g.AddConditionalEdge("a", func(context.Context, counterState) string { return "k" }, map[string]string{"k": "ghost"})
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("static and conditional", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "", noop)
		g.AddEdge(START, "a")
		g.AddEdge("a", END)
		g.AddConditionalEdge("a", func(context.Context, counterState) string { return END }, nil)
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrInvalidGraph)
	})

	t.Run("fan out", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "", noop)
		g.AddNode("b", "", noop)
		g.AddEdge(START, "a")
		g.AddEdge("a", "b")
		g.AddEdge("a", END)
		_, err := g.Compile()
		assert.ErrorIs(t, err, ErrInvalidGraph)
	})
}

func TestStateGraph_RuntimeErrors(t *testing.T) {
	t.Run("no outgoing edge", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "", visit("a"))
		g.AddEdge(START, "a")
		app, err := g.Compile()
		require.NoError(t, err)
		_, err = app.Invoke(context.Background(), counterState{})
		assert.ErrorIs(t, err, ErrNoOutgoingEdge)
	})

	t.Run("route missing from path map", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "", visit("a"))
		g.AddEdge(START, "a")
		g.AddConditionalEdge("a", func(context.Context, counterState) string { return "nowhere" }, map[string]string{"end": END})
		app, err := g.Compile()
		require.NoError(t, err)
		_, err = app.Invoke(context.Background(), counterState{})
		assert.ErrorIs(t, err, ErrInvalidRoute)
	})

	t.Run("unknown routed node", func(t *testing.T) {
		g := NewStateGraph[counterState]()
		g.AddNode("a", "", visit("a"))
		g.AddEdge(START, "a")
		g.AddConditionalEdge("a", func(context.Context, counterState) string { return "ghost" }, nil)
		app, err := g.Compile()
		require.NoError(t, err)
		_, err = app.Invoke(context.Background(), counterState{})
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("node error keeps last state", func(t *testing.T) {
		boom := errors.New("boom")
		g := NewStateGraph[counterState]()
		g.AddNode("a", "", visit("a"))
		g.AddNode("b", "", func(context.Context, counterState) (counterState, error) { return counterState{}, boom })
		g.AddEdge(START, "a")
		g.AddEdge("a", "b")
		g.AddEdge("b", END)
		app, err := g.Compile()
		require.NoError(t, err)

		out, err := app.Invoke(context.Background(), counterState{})
		assert.ErrorIs(t, err, boom)
		var nodeErr *NodeError
		require.ErrorAs(t, err, &nodeErr)
		assert.Equal(t, "b", nodeErr.Node)
		assert.Equal(t, 1, out.Count)
	})
}

func TestStateGraph_RecursionLimit(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("spin", "", visit("spin"))
	g.AddEdge(START, "spin")
	g.AddConditionalEdge("spin", func(context.Context, counterState) string { return "spin" }, nil)

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), counterState{})
	assert.ErrorIs(t, err, ErrRecursionLimit)
	assert.Equal(t, DefaultRecursionLimit, out.Count)

	out, err = app.InvokeWithConfig(context.Background(), counterState{}, &Config{RecursionLimit: 3})
	assert.ErrorIs(t, err, ErrRecursionLimit)
	assert.Equal(t, 3, out.Count)

	limited, err := g.Compile(WithRecursionLimit[counterState](5))
	require.NoError(t, err)
	out, _ = limited.Invoke(context.Background(), counterState{})
	assert.Equal(t, 5, out.Count)
}

func TestStateGraph_ContextCancelled(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("a", "", visit("a"))
	g.AddEdge(START, "a")
	g.AddEdge("a", END)
	app, err := g.Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = app.Invoke(ctx, counterState{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateGraph_ThreadIDInContext(t *testing.T) {
	var seen string
	g := NewStateGraph[counterState]()
	g.AddNode("a", "", func(ctx context.Context, s counterState) (counterState, error) {
		seen = ThreadID(ctx)
		return s, nil
	})
	g.AddEdge(START, "a")
	g.AddEdge("a", END)
	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.InvokeWithConfig(context.Background(), counterState{}, &Config{ThreadID: "thread-7"})
	require.NoError(t, err)
	assert.Equal(t, "thread-7", seen)
}

func TestStateGraph_NodesInInsertionOrder(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("z", "last letter", visit("z"))
	g.AddNode("a", "first letter", visit("a"))
	g.AddNode("z", "replaced", visit("z"))

	nodes := g.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "z", nodes[0].Name)
	assert.Equal(t, "replaced", nodes[0].Description)
	assert.Equal(t, "a", nodes[1].Name)
}
