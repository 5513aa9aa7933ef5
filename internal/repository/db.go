package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS extraction_results (
	id            TEXT PRIMARY KEY,
	source_path   TEXT NOT NULL,
	state         TEXT NOT NULL,
	confidence    INTEGER NOT NULL,
	needs_review  INTEGER NOT NULL,
	payload       TEXT NOT NULL,
	created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_results_created_at ON extraction_results(created_at);
`

// Open opens (or creates) the sqlite results database and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping results db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply results schema: %w", err)
	}
	logger.Info("results db ready", "path", path)
	return db, nil
}
