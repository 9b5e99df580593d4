package store

import (
	"encoding/json"
	"fmt"
)

// Columns is the relational encoding of a checkpoint shared by the SQL backends.
type Columns struct {
	ExecutionID string
	State       []byte
	Metadata    []byte
}

// EncodeColumns marshals the JSON columns of a checkpoint.
func EncodeColumns(cp *Checkpoint) (Columns, error) {
	state, err := json.Marshal(cp.State)
	if err != nil {
		return Columns{}, fmt.Errorf("failed to marshal state: %w", err)
	}
	meta, err := json.Marshal(cp.Metadata)
	if err != nil {
		return Columns{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return Columns{ExecutionID: cp.ExecutionID(), State: state, Metadata: meta}, nil
}

// DecodeColumns fills State and Metadata from their JSON columns. An empty or
// "null" metadata column leaves Metadata nil.
func DecodeColumns(cp *Checkpoint, state, metadata []byte) error {
	if err := json.Unmarshal(state, &cp.State); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &cp.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return nil
}
