package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/oladayo-ade/solarbill/internal/pipeline"
)

// ResultStore persists completed extraction results. The table is
// insert-only; a result is never mutated after assembly.
type ResultStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewResultStore(db *sql.DB, logger *slog.Logger) *ResultStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultStore{db: db, logger: logger}
}

// Insert stores one result with its full JSON payload.
func (s *ResultStore) Insert(ctx context.Context, res *pipeline.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extraction_results (id, source_path, state, confidence, needs_review, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		res.ID.String(), res.SourcePath, string(res.State), res.Confidence, boolToInt(res.NeedsReview), string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	s.logger.Info("result stored", "doc_id", res.ID, "state", string(res.State))
	return nil
}

// ListRecent returns up to limit results, newest first.
func (s *ResultStore) ListRecent(ctx context.Context, limit int) ([]*pipeline.Result, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM extraction_results ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("rows close error", "error", err)
		}
	}()

	var out []*pipeline.Result
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var res pipeline.Result
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			s.logger.Warn("skipping undecodable stored result", "error", err)
			continue
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
