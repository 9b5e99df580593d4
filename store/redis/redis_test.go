package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smallnest/agentdesk/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisCheckpointStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s := NewRedisCheckpointStore(RedisOptions{Addr: mr.Addr(), TTL: ttl})
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisCheckpointStore(t *testing.T) {
	s, mr := newTestStore(t, 0)
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	cp := &store.Checkpoint{
		ID:        "cp-1",
		NodeName:  "billing_agent",
		State:     map[string]any{"customer_id": "C-42"},
		Timestamp: time.Now(),
		Version:   1,
		Metadata:  map[string]any{store.MetadataExecutionID: "thread-1"},
	}
	require.NoError(t, s.Save(ctx, cp))
	assert.True(t, mr.Exists("agentdesk:checkpoint:cp-1"))

	loaded, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "billing_agent", loaded.NodeName)
	state, ok := loaded.State.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "C-42", state["customer_id"])

	list, err := s.List(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cp-1", list[0].ID)

	require.NoError(t, s.Delete(ctx, "cp-1"))
	_, err = s.Load(ctx, "cp-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err = s.List(ctx, "thread-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.NoError(t, s.Delete(ctx, "cp-1"))
}

func TestRedisCheckpointStore_ListOrderedByVersion(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	for _, v := range []int{3, 1, 2} {
		require.NoError(t, s.Save(ctx, &store.Checkpoint{
			ID:       "cp-" + string(rune('0'+v)),
			Version:  v,
			Metadata: map[string]any{store.MetadataExecutionID: "thread-1"},
		}))
	}

	list, err := s.List(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{list[0].Version, list[1].Version, list[2].Version})
}

func TestRedisCheckpointStore_Clear(t *testing.T) {
	s, mr := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "a", Version: 1, Metadata: map[string]any{store.MetadataExecutionID: "t1"}}))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "b", Version: 2, Metadata: map[string]any{store.MetadataExecutionID: "t1"}}))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "c", Version: 1, Metadata: map[string]any{store.MetadataExecutionID: "t2"}}))

	require.NoError(t, s.Clear(ctx, "t1"))
	assert.False(t, mr.Exists("agentdesk:checkpoint:a"))
	assert.False(t, mr.Exists("agentdesk:thread:t1:checkpoints"))
	assert.True(t, mr.Exists("agentdesk:checkpoint:c"))
}

func TestRedisCheckpointStore_TTL(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "a", Version: 1, Metadata: map[string]any{store.MetadataExecutionID: "t1"}}))
	assert.Equal(t, time.Minute, mr.TTL("agentdesk:checkpoint:a"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Load(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisCheckpointStore_ListSkipsExpiredEntries(t *testing.T) {
	s, mr := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "a", Version: 1, Metadata: map[string]any{store.MetadataExecutionID: "t1"}}))
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "b", Version: 2, Metadata: map[string]any{store.MetadataExecutionID: "t1"}}))
	mr.Del("agentdesk:checkpoint:a")

	list, err := s.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}
