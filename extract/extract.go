// Package extract pulls runnable Python out of Markdown documents.
//
// Model responses and tutorial pages wrap code in fenced blocks; the
// gateway only wants the code. Parsing the Markdown AST instead of
// scanning for backticks keeps indented fences and nested content
// correct.
package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PythonBlocks returns the concatenated contents of every fenced code
// block labeled "python", in document order, joined with a newline. Blocks
// that are empty after trimming are dropped. Returns "" when the document
// has no python fences.
func PythonBlocks(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if lang := string(fence.Language(source)); !strings.EqualFold(lang, "python") {
			return ast.WalkContinue, nil
		}

		var sb strings.Builder
		lines := fence.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(source))
		}
		if block := strings.TrimSpace(sb.String()); block != "" {
			blocks = append(blocks, block)
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(blocks, "\n")
}
