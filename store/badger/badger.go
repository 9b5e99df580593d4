// Package badger stores checkpoints in an embedded BadgerDB.
//
// Each checkpoint is a JSON value under "checkpoint:<id>"; an empty
// "thread:<thread>:<id>" key per checkpoint indexes the threads.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/smallnest/agentdesk/store"
)

// BadgerCheckpointStore implements store.CheckpointStore on BadgerDB.
type BadgerCheckpointStore struct {
	db  *badger.DB
	ttl time.Duration
}

var _ store.CheckpointStore = (*BadgerCheckpointStore)(nil)

// BadgerOptions configures the store.
type BadgerOptions struct {
	// Dir holds the database files. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	// TTL expires checkpoints, 0 keeps them forever.
	TTL time.Duration
}

// NewBadgerCheckpointStore opens the database.
func NewBadgerCheckpointStore(opts BadgerOptions) (*BadgerCheckpointStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, errors.New("badger directory is required")
		}
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		bopts = badger.DefaultOptions(opts.Dir)
	}

	db, err := badger.Open(bopts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerCheckpointStore{db: db, ttl: opts.TTL}, nil
}

// Close closes the database.
func (s *BadgerCheckpointStore) Close() error {
	return s.db.Close()
}

func checkpointKey(id string) []byte {
	return []byte("checkpoint:" + id)
}

func threadPrefix(thread string) []byte {
	return []byte("thread:" + thread + ":")
}

func (s *BadgerCheckpointStore) entry(key, value []byte) *badger.Entry {
	e := badger.NewEntry(key, value)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return e
}

// Save stores a checkpoint and indexes it under its thread.
func (s *BadgerCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(s.entry(checkpointKey(checkpoint.ID), data)); err != nil {
			return err
		}
		if thread := checkpoint.ExecutionID(); thread != "" {
			key := append(threadPrefix(thread), checkpoint.ID...)
			return txn.SetEntry(s.entry(key, nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint to badger: %w", err)
	}
	return nil
}

func get(txn *badger.Txn, id string) (*store.Checkpoint, error) {
	item, err := txn.Get(checkpointKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint from badger: %w", err)
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", id, err)
	}
	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// threadIDs returns the checkpoint ids indexed under thread.
func threadIDs(txn *badger.Txn, thread string) []string {
	prefix := threadPrefix(thread)
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(prefix):]))
	}
	return ids
}

// Load retrieves a checkpoint by ID
func (s *BadgerCheckpointStore) Load(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	var cp *store.Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		cp, err = get(txn, checkpointID)
		return err
	})
	return cp, err
}

// List returns the checkpoints of a thread ordered by version.
func (s *BadgerCheckpointStore) List(_ context.Context, executionID string) ([]*store.Checkpoint, error) {
	checkpoints := []*store.Checkpoint{}
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range threadIDs(txn, executionID) {
			cp, err := get(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			checkpoints = append(checkpoints, cp)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for thread %s: %w", executionID, err)
	}
	store.SortByVersion(checkpoints)
	return checkpoints, nil
}

// Delete removes a checkpoint and its index entry.
func (s *BadgerCheckpointStore) Delete(_ context.Context, checkpointID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		cp, err := get(txn, checkpointID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(checkpointKey(checkpointID)); err != nil {
			return err
		}
		if thread := cp.ExecutionID(); thread != "" {
			return txn.Delete(append(threadPrefix(thread), checkpointID...))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints for a thread
func (s *BadgerCheckpointStore) Clear(_ context.Context, executionID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		prefix := threadPrefix(executionID)
		for _, id := range threadIDs(txn, executionID) {
			if err := txn.Delete(checkpointKey(id)); err != nil {
				return err
			}
			if err := txn.Delete(append(append([]byte(nil), prefix...), id...)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}
