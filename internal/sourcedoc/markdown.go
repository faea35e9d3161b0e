package sourcedoc

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// openMarkdown reads Markdown with goldmark. Form feeds split pages; each
// page is parsed on its own so headings land on the page they appear on.
func openMarkdown(src []byte) (*Document, error) {
	md := goldmark.New()
	doc := &Document{}
	for i, chunk := range bytes.Split(bytes.TrimRight(src, "\f"), []byte{'\f'}) {
		page := i + 1
		root := md.Parser().Parse(text.NewReader(chunk))
		var blocks []string
		for n := root.FirstChild(); n != nil; n = n.NextSibling() {
			if h, ok := n.(*ast.Heading); ok {
				title := strings.TrimSpace(string(inlineText(h, chunk)))
				if title == "" {
					continue
				}
				doc.Headings = append(doc.Headings, Heading{Level: h.Level, Title: title, Page: page})
				if doc.Title == "" && h.Level == 1 {
					doc.Title = title
				}
			}
			if t := strings.TrimSpace(blockText(n, chunk)); t != "" {
				blocks = append(blocks, t)
			}
		}
		doc.Pages = append(doc.Pages, Page{Number: page, Text: strings.Join(blocks, "\n\n")})
	}
	return doc, nil
}

// blockText returns the text of a block without markup.
func blockText(n ast.Node, src []byte) string {
	if n.Type() == ast.TypeBlock && n.FirstChild() != nil && n.FirstChild().Type() == ast.TypeInline {
		return string(inlineText(n, src))
	}
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return buf.String()
	}
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := strings.TrimSpace(blockText(c, src)); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func inlineText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.Write(inlineText(c, src))
		}
	}
	return buf.Bytes()
}
