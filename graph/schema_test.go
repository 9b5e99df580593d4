package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatState struct {
	Messages []string
	Turns    int
}

func mergeChat(current, update chatState) (chatState, error) {
	current.Messages = AppendSlice(current.Messages, update.Messages)
	current.Turns += update.Turns
	return current, nil
}

func TestStructSchema_MergesNodeUpdates(t *testing.T) {
	g := NewStateGraph[chatState]()
	g.SetSchema(NewStructSchema(chatState{}, mergeChat))
	g.AddNode("greet", "", func(context.Context, chatState) (chatState, error) {
		return chatState{Messages: []string{"hello"}, Turns: 1}, nil
	})
	g.AddNode("reply", "", func(_ context.Context, s chatState) (chatState, error) {
		return chatState{Messages: []string{"seen " + s.Messages[len(s.Messages)-1]}, Turns: 1}, nil
	})
	g.AddEdge(START, "greet")
	g.AddEdge("greet", "reply")
	g.AddEdge("reply", END)

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), chatState{Messages: []string{"hi"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "hello", "seen hello"}, out.Messages)
	assert.Equal(t, 2, out.Turns)
}

func TestStructSchema_NilMergeReplaces(t *testing.T) {
	s := NewStructSchema(chatState{Turns: 9}, nil)
	assert.Equal(t, 9, s.Init().Turns)

	out, err := s.Update(chatState{Turns: 1}, chatState{Turns: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Turns)
}

func TestStructSchema_MergeError(t *testing.T) {
	boom := errors.New("merge failed")
	g := NewStateGraph[chatState]()
	calls := 0
	g.SetSchema(NewStructSchema(chatState{}, func(current, update chatState) (chatState, error) {
		calls++
		if calls > 1 {
			return current, boom
		}
		return update, nil
	}))
	g.AddNode("a", "", func(_ context.Context, s chatState) (chatState, error) { return s, nil })
	g.AddEdge(START, "a")
	g.AddEdge("a", END)

	app, err := g.Compile()
	require.NoError(t, err)
	_, err = app.Invoke(context.Background(), chatState{})
	assert.ErrorIs(t, err, boom)
}

func TestAppendSlice_DoesNotAlias(t *testing.T) {
	base := make([]string, 1, 4)
	base[0] = "a"

	first := AppendSlice(base, []string{"b"})
	second := AppendSlice(base, []string{"c"})

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, []string{"a", "c"}, second)
	assert.Equal(t, []string{"a"}, AppendSlice(base, nil))
}
