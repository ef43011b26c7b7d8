package extractor

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// extractMarkdown parses markdown into its AST and collects the plain text
// content, so markup characters never leak into chunk text. Block
// boundaries become paragraph breaks.
func extractMarkdown(raw []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(raw))

	var buf strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(raw))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteString("\n")
				}
			}
		case *ast.FencedCodeBlock:
			if entering {
				writeBlockLines(&buf, node, raw)
			}
		case *ast.CodeBlock:
			if entering {
				writeBlockLines(&buf, node, raw)
			}
		case *ast.AutoLink:
			if entering {
				buf.Write(node.URL(raw))
			}
		default:
			if !entering && n.Type() == ast.TypeBlock {
				buf.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse markdown: %w", err)
	}
	return buf.String(), nil
}

func writeBlockLines(buf *strings.Builder, node ast.Node, raw []byte) {
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(raw))
	}
	buf.WriteString("\n\n")
}
