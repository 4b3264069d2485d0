package ingest

import (
	"strings"
	"testing"
)

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		url    string
		header string
		want   ContentType
	}{
		{"https://example.com/guide.md", "", TypeMarkdown},
		{"https://example.com/paper.pdf", "", TypePDF},
		{"https://example.com/page.html", "", TypeHTML},
		{"https://example.com/notes.txt", "", TypePlainText},
		{"https://example.com/tutorial", "text/html; charset=utf-8", TypeHTML},
		{"https://example.com/doc", "application/pdf", TypePDF},
		{"https://example.com/doc", "text/markdown", TypeMarkdown},
		{"https://example.com/doc", "", TypePlainText},
		// Extension wins over header.
		{"https://example.com/guide.md", "text/html", TypeMarkdown},
	}
	for _, tt := range tests {
		if got := DetectContentType(tt.url, tt.header); got != tt.want {
			t.Errorf("DetectContentType(%q, %q) = %q, want %q", tt.url, tt.header, got, tt.want)
		}
	}
}

func TestExtract_Markdown(t *testing.T) {
	md := "# Hello World Tutorial\n\nSome prose.\n\n```python\nprint('hi')\n```\n"
	ex, err := Extract("https://example.com/t.md", []byte(md), TypeMarkdown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Title != "Hello World Tutorial" {
		t.Errorf("title = %q", ex.Title)
	}
	if !strings.Contains(ex.Text, "```python") {
		t.Error("markdown fences should survive extraction")
	}
}

func TestExtract_PlainTextTitleFallsBackToURL(t *testing.T) {
	ex, err := Extract("https://example.com/notes.txt", []byte("just text"), TypePlainText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Title != "https://example.com/notes.txt" {
		t.Errorf("title = %q", ex.Title)
	}
	if ex.Text != "just text" {
		t.Errorf("text = %q", ex.Text)
	}
}

func TestExtract_HTML(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>Qiskit Guide</title></head><body>
<article><h1>Qiskit Guide</h1>
<p>Quantum circuits are built from gates. This paragraph is long enough for
the readability heuristics to keep it as primary content of the page, which
they judge by text density and link ratio.</p>
<p>A second paragraph with more prose keeps the extractor convinced that
this article node is the main content of the document.</p>
</article></body></html>`
	ex, err := Extract("https://example.com/guide.html", []byte(html), TypeHTML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(ex.Text, "Quantum circuits are built from gates") {
		t.Errorf("article text missing: %q", ex.Text)
	}
	if strings.Contains(ex.Text, "<p>") {
		t.Error("tags leaked into extracted text")
	}
}

func TestExtract_NFCNormalization(t *testing.T) {
	// "é" as 'e' + combining acute accent must come back precomposed.
	decomposed := "cafe\u0301"
	ex, err := Extract("https://example.com/a.txt", []byte(decomposed), TypePlainText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Text != "caf\u00e9" {
		t.Errorf("text not NFC normalized: %q", ex.Text)
	}
}

func TestExtract_EmptyPDF(t *testing.T) {
	if _, err := Extract("https://example.com/x.pdf", nil, TypePDF); err == nil {
		t.Error("expected error for empty PDF")
	}
}

func TestMarkdownTitle(t *testing.T) {
	if got := markdownTitle("intro\n# The Title\ntext"); got != "The Title" {
		t.Errorf("got %q", got)
	}
	if got := markdownTitle("## only subheading\ntext"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
