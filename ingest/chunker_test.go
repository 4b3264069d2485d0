package ingest

import (
	"strings"
	"testing"
)

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker()
	chunks := c.Chunk("short text")
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestChunker_EmptyText(t *testing.T) {
	c := NewChunker()
	if chunks := c.Chunk("   \n  "); chunks != nil {
		t.Errorf("expected nil, got %v", chunks)
	}
}

func TestChunker_RespectsMaxSize(t *testing.T) {
	c := NewChunker(WithMaxChars(100), WithOverlapChars(20))
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("This is sentence number something. ")
	}
	chunks := c.Chunk(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		// Overlap carry can push slightly past the cap but never double it.
		if len(ch) > 200 {
			t.Errorf("chunk %d too large: %d chars", i, len(ch))
		}
	}
}

func TestChunker_PrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha ", 12)
	para2 := strings.Repeat("beta ", 12)
	c := NewChunker(WithMaxChars(80), WithOverlapChars(0))
	chunks := c.Chunk(para1 + "\n\n" + para2)
	if len(chunks) < 2 {
		t.Fatalf("expected split, got %v", chunks)
	}
	if strings.Contains(chunks[0], "beta") {
		t.Errorf("paragraph boundary ignored: %q", chunks[0])
	}
}

func TestChunker_OverlapCarriesTail(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("word" + string(rune('a'+i%26)) + " filler content here. ")
	}
	c := NewChunker(WithMaxChars(150), WithOverlapChars(40))
	chunks := c.Chunk(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	tail := chunks[0][len(chunks[0])-20:]
	if !strings.Contains(chunks[1], strings.TrimSpace(tail)) {
		t.Errorf("no overlap between chunks:\nfirst tail: %q\nsecond: %q", tail, chunks[1])
	}
}

func TestChunker_HardCutsUnbrokenText(t *testing.T) {
	c := NewChunker(WithMaxChars(64), WithOverlapChars(0))
	chunks := c.Chunk(strings.Repeat("x", 300))
	if len(chunks) < 4 {
		t.Fatalf("expected hard cuts, got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch) > 64 {
			t.Errorf("chunk %d exceeds cap: %d", i, len(ch))
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two! Three? Four")
	want := []string{"One.", "Two!", "Three?", "Four"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
