// Package postgres stores checkpoints in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/agentdesk/store"
)

// DBPool is the subset of *pgxpool.Pool the store needs. pgxmock satisfies it.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresCheckpointStore implements store.CheckpointStore using PostgreSQL
type PostgresCheckpointStore struct {
	pool  DBPool
	table string
}

var _ store.CheckpointStore = (*PostgresCheckpointStore)(nil)

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "checkpoints"
}

// NewPostgresCheckpointStore connects a pool and makes sure the table exists.
func NewPostgresCheckpointStore(ctx context.Context, opts PostgresOptions) (*PostgresCheckpointStore, error) {
	if opts.TableName != "" && !tableNamePattern.MatchString(opts.TableName) {
		return nil, fmt.Errorf("invalid table name %q", opts.TableName)
	}
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	s := NewPostgresCheckpointStoreWithPool(pool, opts.TableName)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresCheckpointStoreWithPool wraps an existing pool.
func NewPostgresCheckpointStoreWithPool(pool DBPool, tableName string) *PostgresCheckpointStore {
	if tableName == "" {
		tableName = "checkpoints"
	}
	return &PostgresCheckpointStore{pool: pool, table: tableName}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresCheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	execution_id TEXT NOT NULL,
	node_name TEXT NOT NULL,
	state JSONB NOT NULL,
	metadata JSONB,
	timestamp TIMESTAMPTZ NOT NULL,
	version INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_execution_id ON %[1]s (execution_id, version);`, s.table)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresCheckpointStore) Close() {
	s.pool.Close()
}

// Save upserts a checkpoint.
func (s *PostgresCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	cols, err := store.EncodeColumns(checkpoint)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (id, execution_id, node_name, state, metadata, timestamp, version) "+
		"VALUES ($1, $2, $3, $4, $5, $6, $7) "+
		"ON CONFLICT (id) DO UPDATE SET execution_id = EXCLUDED.execution_id, node_name = EXCLUDED.node_name, "+
		"state = EXCLUDED.state, metadata = EXCLUDED.metadata, timestamp = EXCLUDED.timestamp, version = EXCLUDED.version",
		s.table)

	_, err = s.pool.Exec(ctx, query,
		checkpoint.ID,
		cols.ExecutionID,
		checkpoint.NodeName,
		cols.State,
		cols.Metadata,
		checkpoint.Timestamp,
		checkpoint.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresCheckpointStore) selectColumns() string {
	return "SELECT id, node_name, state, metadata, timestamp, version FROM " + s.table
}

func scanCheckpoint(row pgx.Row) (*store.Checkpoint, error) {
	var (
		cp        store.Checkpoint
		state     []byte
		metadata  []byte
		timestamp time.Time
	)
	if err := row.Scan(&cp.ID, &cp.NodeName, &state, &metadata, &timestamp, &cp.Version); err != nil {
		return nil, err
	}
	cp.Timestamp = timestamp
	if err := store.DecodeColumns(&cp, state, metadata); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Load retrieves a checkpoint by ID
func (s *PostgresCheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	row := s.pool.QueryRow(ctx, s.selectColumns()+" WHERE id = $1", checkpointID)
	cp, err := scanCheckpoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

// List returns the checkpoints of an execution ordered by version.
func (s *PostgresCheckpointStore) List(ctx context.Context, executionID string) ([]*store.Checkpoint, error) {
	rows, err := s.pool.Query(ctx, s.selectColumns()+" WHERE execution_id = $1 ORDER BY version ASC", executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []*store.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}
	return checkpoints, nil
}

// Delete removes a checkpoint
func (s *PostgresCheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM "+s.table+" WHERE id = $1", checkpointID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints for an execution
func (s *PostgresCheckpointStore) Clear(ctx context.Context, executionID string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM "+s.table+" WHERE execution_id = $1", executionID); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}
