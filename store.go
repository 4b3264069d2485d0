package coderun

import "context"

// History is an audit log of completed executions. Implementations live in
// store/sqlite and store/postgres. Recording is best-effort: the gateway
// never fails a request because the audit write failed.
type History interface {
	// Init creates the backing schema if it does not exist.
	Init(ctx context.Context) error
	// Record appends one execution record.
	Record(ctx context.Context, rec ExecutionRecord) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]ExecutionRecord, error)
	// Close releases the underlying connection(s).
	Close() error
}

// DocumentStore persists ingested documents and their chunks and serves
// keyword search over chunk content.
type DocumentStore interface {
	// SaveDocument stores a document and its chunks atomically, replacing
	// any previous document with the same source.
	SaveDocument(ctx context.Context, doc Document, chunks []Chunk) error
	// SearchChunks returns chunks whose content matches the query terms,
	// most recent document first.
	SearchChunks(ctx context.Context, query string, limit int) ([]Chunk, error)
	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}
