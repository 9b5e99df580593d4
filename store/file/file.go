// Package file stores each checkpoint as a JSON document in a directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/smallnest/agentdesk/store"
)

// FileCheckpointStore persists checkpoints under a directory, one file each.
type FileCheckpointStore struct {
	dir string
	mu  sync.RWMutex
}

var _ store.CheckpointStore = (*FileCheckpointStore)(nil)

// NewFileCheckpointStore creates the directory if needed.
func NewFileCheckpointStore(dir string) (*FileCheckpointStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileCheckpointStore{dir: dir}, nil
}

func (f *FileCheckpointStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid checkpoint id %q", id)
	}
	return filepath.Join(f.dir, id+".json"), nil
}

// Save writes the checkpoint through a temp file and rename.
func (f *FileCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	p, err := f.path(checkpoint.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint by ID
func (f *FileCheckpointStore) Load(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	p, err := f.path(checkpointID)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	return readCheckpoint(p, checkpointID)
}

func readCheckpoint(p, id string) (*store.Checkpoint, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", id, err)
	}
	return &cp, nil
}

func (f *FileCheckpointStore) all() ([]*store.Checkpoint, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}
	var cps []*store.Checkpoint
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		cp, err := readCheckpoint(filepath.Join(f.dir, e.Name()), id)
		if err != nil {
			return nil, err
		}
		cps = append(cps, cp)
	}
	return cps, nil
}

// List returns the checkpoints of an execution ordered by version.
func (f *FileCheckpointStore) List(_ context.Context, executionID string) ([]*store.Checkpoint, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	cps, err := f.all()
	if err != nil {
		return nil, err
	}
	var result []*store.Checkpoint
	for _, cp := range cps {
		if cp.ExecutionID() == executionID {
			result = append(result, cp)
		}
	}
	store.SortByVersion(result)
	return result, nil
}

// Delete removes a checkpoint file. Missing files are ignored.
func (f *FileCheckpointStore) Delete(_ context.Context, checkpointID string) error {
	p, err := f.path(checkpointID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints for an execution
func (f *FileCheckpointStore) Clear(_ context.Context, executionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cps, err := f.all()
	if err != nil {
		return err
	}
	for _, cp := range cps {
		if cp.ExecutionID() != executionID {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, cp.ID+".json")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to clear checkpoints: %w", err)
		}
	}
	return nil
}
