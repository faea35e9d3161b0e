package sourcedoc

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// openHTML reads an HTML export. Converters such as pdf2htmlEX wrap each
// page in an element with class "page"; when those are present each becomes
// a physical page, otherwise the body is a single page.
func openHTML(data []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &Document{}
	if title := find(root, func(n *html.Node) bool { return isElement(n, "title") }); title != nil {
		doc.Title = textContent(title)
	}
	body := find(root, func(n *html.Node) bool { return isElement(n, "body") })
	if body == nil {
		body = root
	}

	var pages []*html.Node
	collect(body, func(n *html.Node) bool { return n.Type == html.ElementNode && hasClass(n, "page") }, &pages)
	if len(pages) == 0 {
		pages = []*html.Node{body}
	}
	for i, p := range pages {
		var w pageWriter
		w.page = i + 1
		w.walk(p)
		doc.Pages = append(doc.Pages, Page{Number: i + 1, Text: strings.TrimSpace(w.text.String())})
		doc.Headings = append(doc.Headings, w.headings...)
	}
	return doc, nil
}

type pageWriter struct {
	page     int
	text     strings.Builder
	headings []Heading
}

func (w *pageWriter) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "nav", "noscript":
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			t := textContent(n)
			if t != "" {
				w.headings = append(w.headings, Heading{Level: int(n.Data[1] - '0'), Title: t, Page: w.page})
				w.block(t)
			}
			return
		case "p", "li", "td", "th", "blockquote", "pre":
			w.block(textContent(n))
			return
		}
	}
	if n.Type == html.TextNode {
		w.block(strings.Join(strings.Fields(n.Data), " "))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *pageWriter) block(t string) {
	if t == "" {
		return
	}
	if w.text.Len() > 0 {
		w.text.WriteString("\n\n")
	}
	w.text.WriteString(t)
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" && slices.Contains(strings.Fields(a.Val), class) {
			return true
		}
	}
	return false
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, match); f != nil {
			return f
		}
	}
	return nil
}

// collect gathers the outermost nodes matching match.
func collect(n *html.Node, match func(*html.Node) bool, out *[]*html.Node) {
	if match(n) {
		*out = append(*out, n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, match, out)
	}
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}
