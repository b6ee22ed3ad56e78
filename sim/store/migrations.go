package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema contains the DDL for the run history.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		policy     TEXT NOT NULL,
		makespan   REAL NOT NULL,
		jobs       INTEGER NOT NULL,
		schedule   TEXT NOT NULL,
		metrics    TEXT NOT NULL DEFAULT 'null',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
