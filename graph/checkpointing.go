package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/agentdesk/log"
	"github.com/smallnest/agentdesk/store"
)

type checkpointWriter struct {
	store   store.CheckpointStore
	thread  string
	version int
	max     int
}

// newCheckpointWriter returns nil when the invocation is not checkpointed.
// Versions continue from the newest checkpoint already stored for the thread.
func (r *Runnable[S]) newCheckpointWriter(ctx context.Context, threadID string) (*checkpointWriter, error) {
	if r.checkpoints == nil || threadID == "" {
		return nil, nil
	}
	existing, err := r.checkpoints.List(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for %s: %w", threadID, err)
	}
	w := &checkpointWriter{store: r.checkpoints, thread: threadID, max: r.maxCheckpoints}
	if latest := store.Latest(existing); latest != nil {
		w.version = latest.Version
	}
	return w, nil
}

func (w *checkpointWriter) save(ctx context.Context, node string, state any) error {
	if w == nil {
		return nil
	}
	w.version++
	cp := &store.Checkpoint{
		ID:        uuid.NewString(),
		NodeName:  node,
		State:     state,
		Metadata:  map[string]any{store.MetadataExecutionID: w.thread},
		Timestamp: time.Now(),
		Version:   w.version,
	}
	if err := w.store.Save(ctx, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint after %s: %w", node, err)
	}
	return w.prune(ctx)
}

func (w *checkpointWriter) prune(ctx context.Context) error {
	if w.max <= 0 {
		return nil
	}
	cps, err := w.store.List(ctx, w.thread)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints for pruning: %w", err)
	}
	if len(cps) <= w.max {
		return nil
	}
	store.SortByVersion(cps)
	for _, cp := range cps[:len(cps)-w.max] {
		if err := w.store.Delete(ctx, cp.ID); err != nil {
			return fmt.Errorf("failed to prune checkpoint %s: %w", cp.ID, err)
		}
	}
	log.Debug("graph: pruned %d checkpoints of thread %s", len(cps)-w.max, w.thread)
	return nil
}

// GetState returns the newest checkpointed state of a thread. It wraps
// store.ErrNotFound when the thread has no checkpoints.
func (r *Runnable[S]) GetState(ctx context.Context, threadID string) (S, error) {
	var zero S
	if r.checkpoints == nil {
		return zero, fmt.Errorf("no checkpoint store configured")
	}
	cps, err := r.checkpoints.List(ctx, threadID)
	if err != nil {
		return zero, fmt.Errorf("failed to list checkpoints for %s: %w", threadID, err)
	}
	latest := store.Latest(cps)
	if latest == nil {
		return zero, fmt.Errorf("%w: thread %s", store.ErrNotFound, threadID)
	}
	return DecodeState[S](latest.State)
}

// UpdateState checkpoints state for a thread as if node had produced it, so
// input added outside the graph survives a run that fails on its first node.
func (r *Runnable[S]) UpdateState(ctx context.Context, threadID string, state S, node string) error {
	if r.checkpoints == nil {
		return fmt.Errorf("no checkpoint store configured")
	}
	if threadID == "" {
		return fmt.Errorf("thread id is required")
	}
	w, err := r.newCheckpointWriter(ctx, threadID)
	if err != nil {
		return err
	}
	return w.save(ctx, node, state)
}

// ClearState removes every checkpoint of a thread.
func (r *Runnable[S]) ClearState(ctx context.Context, threadID string) error {
	if r.checkpoints == nil {
		return nil
	}
	return r.checkpoints.Clear(ctx, threadID)
}

// DecodeState converts a stored checkpoint state into S. In-memory stores hand
// back S itself; serializing stores hand back decoded JSON.
func DecodeState[S any](raw any) (S, error) {
	if s, ok := raw.(S); ok {
		return s, nil
	}
	var out S
	data, err := json.Marshal(raw)
	if err != nil {
		return out, fmt.Errorf("failed to encode checkpoint state: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode checkpoint state: %w", err)
	}
	return out, nil
}
