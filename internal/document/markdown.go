package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.Table))

// markdownToText renders markdown as plain text, one block per line group.
// Headings, paragraphs and list items become separate paragraphs; table
// rows become pipe-separated lines.
func markdownToText(content []byte) (string, error) {
	doc := markdownParser.Parser().Parse(text.NewReader(content))

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
			if t := extractTextFromNode(node, content); t != "" {
				blocks = append(blocks, t)
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var b strings.Builder
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(content))
			}
			if t := strings.TrimRight(b.String(), "\n"); t != "" {
				blocks = append(blocks, t)
			}
			return ast.WalkSkipChildren, nil

		case *extast.Table:
			rows := make([]string, 0, node.ChildCount())
			for row := node.FirstChild(); row != nil; row = row.NextSibling() {
				rows = append(rows, extractTableRowText(row, content))
			}
			blocks = append(blocks, strings.Join(rows, "\n"))
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})

	return strings.Join(blocks, "\n\n"), nil
}

// extractTextFromNode extracts text content from a node and its children.
// Soft line breaks inside a paragraph become spaces.
func extractTextFromNode(n ast.Node, content []byte) string {
	var b strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
			if v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

// extractTableRowText extracts text from a table row, formatting cells with pipe separators.
func extractTableRowText(row ast.Node, content []byte) string {
	cells := make([]string, 0, row.ChildCount())
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, extractTextFromNode(cell, content))
	}
	return strings.Join(cells, " | ")
}
