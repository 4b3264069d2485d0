// Package postgres implements coderun.History using PostgreSQL.
//
// History accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool; Close here is a no-op
// so the same pool can back other components.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	coderun "github.com/qiskit-studio/coderun"
)

// History implements coderun.History backed by PostgreSQL.
type History struct {
	pool *pgxpool.Pool
}

var _ coderun.History = (*History)(nil)

// New creates a History using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *History {
	return &History{pool: pool}
}

// Init creates the executions table if it does not exist.
func (h *History) Init(ctx context.Context) error {
	_, err := h.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		rule TEXT NOT NULL,
		fault BOOLEAN NOT NULL DEFAULT FALSE,
		timed_out BOOLEAN NOT NULL DEFAULT FALSE,
		elapsed_ms BIGINT NOT NULL,
		output_bytes INTEGER NOT NULL,
		created_at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create executions table: %w", err)
	}
	_, err = h.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_executions_created ON executions (created_at DESC)`)
	if err != nil {
		return fmt.Errorf("create executions index: %w", err)
	}
	return nil
}

// Record appends one execution record.
func (h *History) Record(ctx context.Context, rec coderun.ExecutionRecord) error {
	_, err := h.pool.Exec(ctx,
		`INSERT INTO executions (id, mode, rule, fault, timed_out, elapsed_ms, output_bytes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Mode, rec.Rule, rec.Fault, rec.TimedOut, rec.ElapsedMS, rec.OutputBytes, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]coderun.ExecutionRecord, error) {
	rows, err := h.pool.Query(ctx,
		`SELECT id, mode, rule, fault, timed_out, elapsed_ms, output_bytes, created_at
		 FROM executions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var recs []coderun.ExecutionRecord
	for rows.Next() {
		var rec coderun.ExecutionRecord
		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.Rule, &rec.Fault, &rec.TimedOut,
			&rec.ElapsedMS, &rec.OutputBytes, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close is a no-op; the pool is owned by the caller.
func (h *History) Close() error { return nil }
