package ingest

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// ContentType identifies the type of a fetched document for extraction.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypeMarkdown  ContentType = "text/markdown"
	TypeHTML      ContentType = "text/html"
	TypePDF       ContentType = "application/pdf"
)

// DetectContentType resolves a document type from the URL path extension,
// falling back to the HTTP Content-Type header.
func DetectContentType(rawURL, header string) ContentType {
	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), ".")) {
		case "md", "markdown":
			return TypeMarkdown
		case "html", "htm":
			return TypeHTML
		case "pdf":
			return TypePDF
		case "txt":
			return TypePlainText
		}
	}
	switch {
	case strings.Contains(header, "text/html"):
		return TypeHTML
	case strings.Contains(header, "application/pdf"):
		return TypePDF
	case strings.Contains(header, "text/markdown"):
		return TypeMarkdown
	default:
		return TypePlainText
	}
}

// Extracted is the result of pulling plain text out of a fetched document.
type Extracted struct {
	Title string
	Text  string
}

// Extract converts raw fetched content to plain text plus a best-effort
// title. All text comes back NFC normalized so chunk boundaries and
// keyword search behave the same regardless of how the source encoded
// its accents.
func Extract(rawURL string, content []byte, ctype ContentType) (Extracted, error) {
	var ex Extracted
	var err error
	switch ctype {
	case TypeHTML:
		ex, err = extractHTML(rawURL, content)
	case TypePDF:
		ex, err = extractPDF(content)
	case TypeMarkdown:
		ex = Extracted{Title: markdownTitle(string(content)), Text: string(content)}
	default:
		ex = Extracted{Text: string(content)}
	}
	if err != nil {
		return Extracted{}, err
	}
	if ex.Title == "" {
		ex.Title = rawURL
	}
	ex.Text = norm.NFC.String(strings.TrimSpace(ex.Text))
	return ex, nil
}

func extractHTML(rawURL string, content []byte) (Extracted, error) {
	parsedURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(bytes.NewReader(content), parsedURL)
	if err != nil {
		return Extracted{}, fmt.Errorf("extract article: %w", err)
	}
	if article.TextContent == "" {
		return Extracted{}, fmt.Errorf("extract article: no readable content in %s", rawURL)
	}
	return Extracted{Title: article.Title, Text: article.TextContent}, nil
}

func extractPDF(content []byte) (Extracted, error) {
	if len(content) == 0 {
		return Extracted{}, fmt.Errorf("empty PDF content")
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Extracted{}, fmt.Errorf("open pdf: %w", err)
	}
	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}
	return Extracted{Text: text.String()}, nil
}

// markdownTitle returns the first "# " heading, if any.
func markdownTitle(md string) string {
	for _, line := range strings.Split(md, "\n") {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(t)
		}
	}
	return ""
}
