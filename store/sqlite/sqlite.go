// Package sqlite implements coderun.History and coderun.DocumentStore
// using pure-Go SQLite. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coderun "github.com/qiskit-studio/coderun"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing and row counts. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements coderun.History and coderun.DocumentStore backed by a
// local SQLite file. Keyword search over chunks is done with LIKE terms.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ coderun.History = (*Store)(nil)
var _ coderun.DocumentStore = (*Store)(nil)

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	tables := []string{
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			rule TEXT NOT NULL,
			fault INTEGER NOT NULL DEFAULT 0,
			timed_out INTEGER NOT NULL DEFAULT 0,
			elapsed_ms INTEGER NOT NULL,
			output_bytes INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_created ON executions(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	s.logger.Debug("sqlite: init done", "duration", time.Since(start))
	return nil
}

// Record appends one execution record.
func (s *Store) Record(ctx context.Context, rec coderun.ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, mode, rule, fault, timed_out, elapsed_ms, output_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Mode, rec.Rule, boolToInt(rec.Fault), boolToInt(rec.TimedOut),
		rec.ElapsedMS, rec.OutputBytes, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	s.logger.Debug("sqlite: execution recorded", "id", rec.ID, "rule", rec.Rule)
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]coderun.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, rule, fault, timed_out, elapsed_ms, output_bytes, created_at
		 FROM executions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var recs []coderun.ExecutionRecord
	for rows.Next() {
		var rec coderun.ExecutionRecord
		var fault, timedOut int
		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.Rule, &fault, &timedOut,
			&rec.ElapsedMS, &rec.OutputBytes, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		rec.Fault = fault != 0
		rec.TimedOut = timedOut != 0
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// SaveDocument stores a document and its chunks in one transaction,
// replacing any previous document with the same source.
func (s *Store) SaveDocument(ctx context.Context, doc coderun.Document, chunks []coderun.Chunk) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Re-ingesting a source replaces the old copy and its chunks.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id IN (SELECT id FROM documents WHERE source = ?)`,
		doc.Source); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE source = ?`, doc.Source); err != nil {
		return fmt.Errorf("delete old document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, title, source, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Source, doc.Content, doc.CreatedAt); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, content, chunk_index) VALUES (?, ?, ?, ?)`,
			c.ID, c.DocumentID, c.Content, c.ChunkIndex); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("sqlite: document saved",
		"id", doc.ID, "source", doc.Source, "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

// SearchChunks returns chunks whose content contains every query term,
// newest document first. Matching is case-insensitive.
func (s *Store) SearchChunks(ctx context.Context, query string, limit int) ([]coderun.Chunk, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`SELECT c.id, c.document_id, c.content, c.chunk_index
		FROM chunks c JOIN documents d ON d.id = c.document_id WHERE `)
	args := make([]any, 0, len(terms)+1)
	for i, t := range terms {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString("c.content LIKE ? COLLATE NOCASE")
		args = append(args, "%"+t+"%")
	}
	sb.WriteString(" ORDER BY d.created_at DESC, c.chunk_index ASC LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []coderun.Chunk
	for rows.Next() {
		var c coderun.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.ChunkIndex); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	s.logger.Debug("sqlite: chunk search", "terms", len(terms), "hits", len(chunks))
	return chunks, rows.Err()
}

// CountDocuments returns the number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
