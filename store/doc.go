// Package store defines checkpoint persistence for conversation threads.
//
// Every completed graph step is saved as a Checkpoint carrying the merged
// state, the node that produced it and a monotonically increasing version.
// Checkpoints of one conversation share the "execution_id" metadata key, which
// is the session (thread) id.
//
// Backends live in sub-packages:
//
//   - store/memory: process-local map, the default
//   - store/file: one JSON document per checkpoint
//   - store/redis: go-redis with a per-thread index set
//   - store/postgres: pgx pool, JSONB columns
//   - store/sqlite: mattn/go-sqlite3 through database/sql
package store
