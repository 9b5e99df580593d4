package store

import (
	"context"
	"errors"
	"sort"
	"time"
)

// MetadataExecutionID is the metadata key that groups checkpoints into a thread.
const MetadataExecutionID = "execution_id"

// ErrNotFound is returned (wrapped) when a checkpoint does not exist.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint represents a saved state at a specific point in execution
type Checkpoint struct {
	ID        string         `json:"id"`
	NodeName  string         `json:"node_name"`
	State     any            `json:"state"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
	Version   int            `json:"version"`
}

// ExecutionID returns the thread the checkpoint belongs to, or "".
func (c *Checkpoint) ExecutionID() string {
	if c == nil || c.Metadata == nil {
		return ""
	}
	id, _ := c.Metadata[MetadataExecutionID].(string)
	return id
}

// CheckpointStore defines the interface for checkpoint persistence
type CheckpointStore interface {
	// Save stores a checkpoint, replacing one with the same ID.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID
	Load(ctx context.Context, checkpointID string) (*Checkpoint, error)

	// List returns all checkpoints for a given execution
	List(ctx context.Context, executionID string) ([]*Checkpoint, error)

	// Delete removes a checkpoint
	Delete(ctx context.Context, checkpointID string) error

	// Clear removes all checkpoints for an execution
	Clear(ctx context.Context, executionID string) error
}

// SortByVersion orders checkpoints oldest first. Ties fall back to timestamp.
func SortByVersion(cps []*Checkpoint) {
	sort.SliceStable(cps, func(i, j int) bool {
		if cps[i].Version != cps[j].Version {
			return cps[i].Version < cps[j].Version
		}
		return cps[i].Timestamp.Before(cps[j].Timestamp)
	})
}

// Latest returns the checkpoint with the highest version, or nil.
func Latest(cps []*Checkpoint) *Checkpoint {
	var latest *Checkpoint
	for _, cp := range cps {
		if latest == nil || cp.Version > latest.Version ||
			(cp.Version == latest.Version && cp.Timestamp.After(latest.Timestamp)) {
			latest = cp
		}
	}
	return latest
}
