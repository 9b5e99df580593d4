// Package memory keeps checkpoints in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/agentdesk/store"
)

// MemoryCheckpointStore provides in-memory checkpoint storage
type MemoryCheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*store.Checkpoint
}

var _ store.CheckpointStore = (*MemoryCheckpointStore)(nil)

// NewMemoryCheckpointStore creates a new in-memory checkpoint store
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		checkpoints: make(map[string]*store.Checkpoint),
	}
}

// Save stores a checkpoint in memory
func (m *MemoryCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil || checkpoint.ID == "" {
		return fmt.Errorf("checkpoint id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *checkpoint
	m.checkpoints[cp.ID] = &cp
	return nil
}

// Load retrieves a checkpoint from memory
func (m *MemoryCheckpointStore) Load(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.checkpoints[checkpointID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
	}
	out := *cp
	return &out, nil
}

// List returns the checkpoints of an execution ordered by version.
func (m *MemoryCheckpointStore) List(_ context.Context, executionID string) ([]*store.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*store.Checkpoint
	for _, cp := range m.checkpoints {
		if cp.ExecutionID() == executionID {
			c := *cp
			result = append(result, &c)
		}
	}
	store.SortByVersion(result)
	return result, nil
}

// Delete removes a checkpoint from memory
func (m *MemoryCheckpointStore) Delete(_ context.Context, checkpointID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.checkpoints, checkpointID)
	return nil
}

// Clear removes all checkpoints for an execution
func (m *MemoryCheckpointStore) Clear(_ context.Context, executionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, cp := range m.checkpoints {
		if cp.ExecutionID() == executionID {
			delete(m.checkpoints, id)
		}
	}
	return nil
}
