package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all tables. Each statement uses
// IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id              TEXT PRIMARY KEY,
		title           TEXT NOT NULL DEFAULT '',
		state           TEXT NOT NULL DEFAULT 'PENDING',
		entry_type      TEXT NOT NULL,
		replicate_count INTEGER NOT NULL,
		created_at      TEXT NOT NULL,
		completed_at    TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS run_nodes (
		run_id       TEXT NOT NULL,
		node_id      TEXT NOT NULL,
		kind         TEXT NOT NULL,
		state        TEXT NOT NULL DEFAULT 'PENDING',
		exit_code    INTEGER,
		error        TEXT NOT NULL DEFAULT '',
		outputs      TEXT NOT NULL DEFAULT '{}',
		started_at   TEXT,
		completed_at TEXT,
		PRIMARY KEY (run_id, node_id),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_run_nodes_state ON run_nodes(run_id, state)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

// migrate applies the schema.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
