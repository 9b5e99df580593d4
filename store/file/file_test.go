package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallnest/agentdesk/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileCheckpointStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "checkpoints")

	fs, err := NewFileCheckpointStore(dir)
	require.NoError(t, err)
	require.NotNil(t, fs)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = NewFileCheckpointStore("")
	assert.Error(t, err)
}

func TestFileCheckpointStore_RoundTrip(t *testing.T) {
	fs, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	cp := &store.Checkpoint{
		ID:        "cp-1",
		NodeName:  "conclusion",
		State:     map[string]any{"current_problem": "choose a database", "step_count": 4},
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Version:   4,
		Metadata:  map[string]any{store.MetadataExecutionID: "thread-a"},
	}
	require.NoError(t, fs.Save(ctx, cp))

	loaded, err := fs.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "conclusion", loaded.NodeName)
	assert.Equal(t, 4, loaded.Version)
	assert.True(t, cp.Timestamp.Equal(loaded.Timestamp))

	state, ok := loaded.State.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "choose a database", state["current_problem"])
	assert.Equal(t, float64(4), state["step_count"])
}

func TestFileCheckpointStore_ListDeleteClear(t *testing.T) {
	fs, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for i, id := range []string{"b", "a", "c"} {
		thread := "thread-a"
		if id == "c" {
			thread = "thread-b"
		}
		require.NoError(t, fs.Save(ctx, &store.Checkpoint{
			ID:       id,
			Version:  2 - i,
			Metadata: map[string]any{store.MetadataExecutionID: thread},
		}))
	}

	list, err := fs.List(ctx, "thread-a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	require.NoError(t, fs.Delete(ctx, "a"))
	require.NoError(t, fs.Delete(ctx, "a"))
	_, err = fs.Load(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, fs.Clear(ctx, "thread-a"))
	list, err = fs.List(ctx, "thread-a")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = fs.Load(ctx, "c")
	assert.NoError(t, err)
}

func TestFileCheckpointStore_RejectsPathTraversal(t *testing.T) {
	fs, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)

	err = fs.Save(context.Background(), &store.Checkpoint{ID: "../escape"})
	assert.Error(t, err)
	_, err = fs.Load(context.Background(), "a/b")
	assert.Error(t, err)
}
