// Package sqlite stores checkpoints in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/agentdesk/store"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SqliteCheckpointStore implements store.CheckpointStore using SQLite
type SqliteCheckpointStore struct {
	db    *sql.DB
	table string
}

var _ store.CheckpointStore = (*SqliteCheckpointStore)(nil)

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "checkpoints"
}

// NewSqliteCheckpointStore opens the database and creates the table.
func NewSqliteCheckpointStore(opts SqliteOptions) (*SqliteCheckpointStore, error) {
	table := opts.TableName
	if table == "" {
		table = "checkpoints"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between concurrent turns
	db.SetMaxOpenConns(1)

	s := &SqliteCheckpointStore{db: db, table: table}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *SqliteCheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	execution_id TEXT NOT NULL,
	node_name TEXT NOT NULL,
	state TEXT NOT NULL,
	metadata TEXT,
	timestamp DATETIME NOT NULL,
	version INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_execution_id ON %[1]s (execution_id, version);`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SqliteCheckpointStore) Close() error {
	return s.db.Close()
}

// Save upserts a checkpoint.
func (s *SqliteCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	cols, err := store.EncodeColumns(checkpoint)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (id, execution_id, node_name, state, metadata, timestamp, version) "+
		"VALUES (?, ?, ?, ?, ?, ?, ?) "+
		"ON CONFLICT(id) DO UPDATE SET execution_id = excluded.execution_id, node_name = excluded.node_name, "+
		"state = excluded.state, metadata = excluded.metadata, timestamp = excluded.timestamp, version = excluded.version",
		s.table)

	_, err = s.db.ExecContext(ctx, query,
		checkpoint.ID,
		cols.ExecutionID,
		checkpoint.NodeName,
		string(cols.State),
		string(cols.Metadata),
		checkpoint.Timestamp,
		checkpoint.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row scanner) (*store.Checkpoint, error) {
	var (
		cp       store.Checkpoint
		state    string
		metadata sql.NullString
	)
	if err := row.Scan(&cp.ID, &cp.NodeName, &state, &metadata, &cp.Timestamp, &cp.Version); err != nil {
		return nil, err
	}
	if err := store.DecodeColumns(&cp, []byte(state), []byte(metadata.String)); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *SqliteCheckpointStore) selectColumns() string {
	return "SELECT id, node_name, state, metadata, timestamp, version FROM " + s.table
}

// Load retrieves a checkpoint by ID
func (s *SqliteCheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	cp, err := scanCheckpoint(s.db.QueryRowContext(ctx, s.selectColumns()+" WHERE id = ?", checkpointID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

// List returns the checkpoints of an execution ordered by version.
func (s *SqliteCheckpointStore) List(ctx context.Context, executionID string) ([]*store.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, s.selectColumns()+" WHERE execution_id = ? ORDER BY version ASC", executionID)
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
func (s *SqliteCheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE id = ?", checkpointID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints for an execution
func (s *SqliteCheckpointStore) Clear(ctx context.Context, executionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE execution_id = ?", executionID); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}
