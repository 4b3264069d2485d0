package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	coderun "github.com/qiskit-studio/coderun"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestHistory_RecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []coderun.ExecutionRecord{
		{ID: "a", Mode: "local", Rule: "no_match", ElapsedMS: 10, OutputBytes: 5, CreatedAt: 100},
		{ID: "b", Mode: "local", Rule: "section_split", TimedOut: true, ElapsedMS: 60000, OutputBytes: 40, CreatedAt: 200},
		{ID: "c", Mode: "cloud", Rule: "generic_inject", Fault: true, ElapsedMS: 20, OutputBytes: 12, CreatedAt: 300},
	}
	for _, rec := range recs {
		if err := s.Record(ctx, rec); err != nil {
			t.Fatalf("record %s: %v", rec.ID, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("order wrong: %s, %s", got[0].ID, got[1].ID)
	}
	if !got[1].TimedOut {
		t.Error("timed_out flag lost")
	}
	if !got[0].Fault || got[1].Fault {
		t.Error("fault flag not round-tripped")
	}
	if got[0].Rule != "generic_inject" {
		t.Errorf("rule = %q", got[0].Rule)
	}
}

func TestHistory_RecentEmpty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records from empty store", len(got))
	}
}

func TestDocuments_SaveAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := coderun.Document{ID: "d1", Title: "Hello World", Source: "https://example.com/t1", Content: "full text", CreatedAt: 100}
	chunks := []coderun.Chunk{
		{ID: "c1", DocumentID: "d1", Content: "Build a Bell state with a Hadamard gate", ChunkIndex: 0},
		{ID: "c2", DocumentID: "d1", Content: "Run the sampler primitive on the backend", ChunkIndex: 1},
	}
	if err := s.SaveDocument(ctx, doc, chunks); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.SearchChunks(ctx, "hadamard bell", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("search hits = %+v", got)
	}

	// Every term must match.
	got, err = s.SearchChunks(ctx, "hadamard sampler", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("AND semantics violated: %+v", got)
	}

	n, err := s.CountDocuments(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d", n)
	}
}

func TestDocuments_ReingestReplacesSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := coderun.Document{ID: "d1", Title: "v1", Source: "https://example.com/t", Content: "old", CreatedAt: 100}
	if err := s.SaveDocument(ctx, first, []coderun.Chunk{
		{ID: "c1", DocumentID: "d1", Content: "outdated content here", ChunkIndex: 0},
	}); err != nil {
		t.Fatalf("save v1: %v", err)
	}

	second := coderun.Document{ID: "d2", Title: "v2", Source: "https://example.com/t", Content: "new", CreatedAt: 200}
	if err := s.SaveDocument(ctx, second, []coderun.Chunk{
		{ID: "c2", DocumentID: "d2", Content: "fresh content here", ChunkIndex: 0},
	}); err != nil {
		t.Fatalf("save v2: %v", err)
	}

	n, err := s.CountDocuments(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, re-ingest should replace", n)
	}

	got, err := s.SearchChunks(ctx, "outdated", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("stale chunks survived: %+v", got)
	}
}

func TestSearchChunks_EmptyQuery(t *testing.T) {
	s := newTestStore(t)
	got, err := s.SearchChunks(context.Background(), "   ", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty query, got %+v", got)
	}
}
