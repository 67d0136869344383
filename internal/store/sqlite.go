package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kmualim/atac-seq-pipeline/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// A single connection keeps in-memory databases coherent and avoids
	// SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// RecordRun inserts the run or updates its state and completion time.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "upsert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, title, state, entry_type, replicate_count, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, completed_at = excluded.completed_at`,
		run.ID, run.Title, string(run.State), string(run.EntryType), run.ReplicateCount,
		run.CreatedAt.Format(time.RFC3339Nano), formatTimePtr(run.CompletedAt))
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", run.ID, err)
	}
	return nil
}

// RecordNode upserts one node's status within a run.
func (s *SQLiteStore) RecordNode(ctx context.Context, runID string, st *model.NodeStatus) error {
	outputsJSON, err := json.Marshal(st.Outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO run_nodes (run_id, node_id, kind, state, exit_code, error, outputs, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, node_id) DO UPDATE SET
			state = excluded.state,
			exit_code = excluded.exit_code,
			error = excluded.error,
			outputs = excluded.outputs,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		runID, st.NodeID, string(st.Kind), string(st.State), st.ExitCode, st.Error,
		string(outputsJSON), formatTimePtr(st.StartedAt), formatTimePtr(st.CompletedAt))
	if err != nil {
		return fmt.Errorf("upsert node %s/%s: %w", runID, st.NodeID, err)
	}
	return nil
}

// GetRun returns a run by ID, or nil if absent.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, state, entry_type, replicate_count, created_at, completed_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, state, entry_type, replicate_count, created_at, completed_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListNodes returns every node status of a run, ordered by node ID.
func (s *SQLiteStore) ListNodes(ctx context.Context, runID string) ([]*model.NodeStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, kind, state, exit_code, error, outputs, started_at, completed_at
		FROM run_nodes WHERE run_id = ? ORDER BY node_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list nodes for %s: %w", runID, err)
	}
	defer rows.Close()

	var nodes []*model.NodeStatus
	for rows.Next() {
		var st model.NodeStatus
		var kind, state, outputsJSON string
		var exitCode sql.NullInt64
		var startedAt, completedAt sql.NullString

		if err := rows.Scan(&st.NodeID, &kind, &state, &exitCode, &st.Error,
			&outputsJSON, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		st.Kind = model.NodeKind(kind)
		st.State = model.NodeState(state)
		if exitCode.Valid {
			ec := int(exitCode.Int64)
			st.ExitCode = &ec
		}
		if outputsJSON != "" && outputsJSON != "{}" {
			if err := json.Unmarshal([]byte(outputsJSON), &st.Outputs); err != nil {
				return nil, fmt.Errorf("unmarshal outputs: %w", err)
			}
		}
		st.StartedAt = parseTimePtr(startedAt)
		st.CompletedAt = parseTimePtr(completedAt)
		nodes = append(nodes, &st)
	}
	return nodes, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	var run model.Run
	var state, entry, createdAt string
	var completedAt sql.NullString

	if err := row.Scan(&run.ID, &run.Title, &state, &entry, &run.ReplicateCount,
		&createdAt, &completedAt); err != nil {
		return nil, err
	}
	run.State = model.RunState(state)
	run.EntryType = model.EntryType(entry)
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = t
	run.CompletedAt = parseTimePtr(completedAt)
	return &run, nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
