package view

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/protoreview/internal/render"
	"github.com/dgallion1/protoreview/internal/tree"
)

var md = goldmark.New()

// HTML writes n as an HTML fragment. Editors carry data-path attributes with
// the wire path to patch; citations become buttons with data-page.
func HTML(w io.Writer, n *render.Node, e *Expansion) error {
	root, err := htmlNode(n, e, 0)
	if err != nil {
		return err
	}
	return html.Render(w, root)
}

func htmlNode(n *render.Node, e *Expansion, depth int) (*html.Node, error) {
	switch n.Kind {
	case render.KindNotSpecified, render.KindNone:
		return span(n, n.Text), nil

	case render.KindText:
		if n.Multiline {
			return markdown(n)
		}
		return span(n, n.Text), nil

	case render.KindPlaceholder:
		in := element(atom.Input, n, "type", "text", "placeholder", render.TextNotSpecified, "data-path", n.Path.String())
		return in, nil

	case render.KindToggle:
		in := element(atom.Input, n, "type", "checkbox", "data-path", n.Path.String())
		if b, _ := n.Value.(tree.Bool); b {
			in.Attr = append(in.Attr, html.Attribute{Key: "checked"})
		}
		return in, nil

	case render.KindEditor:
		if n.Multiline {
			ta := element(atom.Textarea, n, "data-path", n.Path.String())
			ta.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text})
			return ta, nil
		}
		return element(atom.Input, n, "type", "text", "value", n.Text, "data-path", n.Path.String()), nil

	case render.KindTags:
		ul := element(atom.Ul, n)
		for _, c := range n.Children {
			child, err := htmlNode(c, e, depth)
			if err != nil {
				return nil, err
			}
			li := &html.Node{Type: html.ElementNode, DataAtom: atom.Li, Data: "li", Attr: []html.Attribute{{Key: "class", Val: "tag"}}}
			li.AppendChild(child)
			ul.AppendChild(li)
		}
		return ul, nil

	case render.KindList:
		ol := element(atom.Ol, n)
		for _, c := range n.Children {
			child, err := htmlNode(c, e, depth+1)
			if err != nil {
				return nil, err
			}
			li := &html.Node{Type: html.ElementNode, DataAtom: atom.Li, Data: "li"}
			li.AppendChild(child)
			ol.AppendChild(li)
		}
		return collapsible(n, e, depth, render.TextNone, ol), nil

	case render.KindSection:
		body, err := children(n, e, depth+1, atom.Div)
		if err != nil {
			return nil, err
		}
		return collapsible(n, e, depth, n.Label, body), nil

	case render.KindField:
		div := element(atom.Div, n, "data-path", n.Path.String())
		label := &html.Node{Type: html.ElementNode, DataAtom: atom.Label, Data: "label"}
		label.AppendChild(&html.Node{Type: html.TextNode, Data: n.Label})
		div.AppendChild(label)
		if n.Citation != nil {
			div.AppendChild(citation(n.Citation))
		}
		for _, c := range n.Children {
			child, err := htmlNode(c, e, depth)
			if err != nil {
				return nil, err
			}
			div.AppendChild(child)
		}
		return div, nil

	case render.KindCited:
		div, err := children(n, e, depth, atom.Div)
		if err != nil {
			return nil, err
		}
		if n.Citation != nil {
			div.InsertBefore(citation(n.Citation), div.FirstChild)
		}
		return div, nil

	case render.KindNoDetails:
		s := span(n, n.Text)
		if n.Citation != nil {
			s.AppendChild(citation(n.Citation))
		}
		return s, nil

	case render.KindObject:
		div, err := children(n, e, depth, atom.Div)
		if err != nil {
			return nil, err
		}
		if n.Label != "" && n.Path.Len() == 0 {
			h := &html.Node{Type: html.ElementNode, DataAtom: atom.H2, Data: "h2"}
			h.AppendChild(&html.Node{Type: html.TextNode, Data: n.Label})
			div.InsertBefore(h, div.FirstChild)
		}
		if n.Citation != nil {
			div.InsertBefore(citation(n.Citation), div.FirstChild)
		}
		return div, nil
	}
	return nil, fmt.Errorf("view: unknown node kind %q", n.Kind)
}

func children(n *render.Node, e *Expansion, depth int, a atom.Atom) (*html.Node, error) {
	parent := element(a, n)
	for _, c := range n.Children {
		child, err := htmlNode(c, e, depth)
		if err != nil {
			return nil, err
		}
		parent.AppendChild(child)
	}
	return parent, nil
}

// collapsible wraps body in <details>, open per e.
func collapsible(n *render.Node, e *Expansion, depth int, summary string, body *html.Node) *html.Node {
	if !Collapsible(n) {
		return body
	}
	d := &html.Node{Type: html.ElementNode, DataAtom: atom.Details, Data: "details",
		Attr: []html.Attribute{{Key: "data-path", Val: n.Path.String()}}}
	if e.Open(n, depth) {
		d.Attr = append(d.Attr, html.Attribute{Key: "open"})
	}
	s := &html.Node{Type: html.ElementNode, DataAtom: atom.Summary, Data: "summary"}
	if n.Kind == render.KindList {
		summary = fmt.Sprintf("%d items", len(n.Children))
	}
	s.AppendChild(&html.Node{Type: html.TextNode, Data: summary})
	if n.Citation != nil {
		s.AppendChild(citation(n.Citation))
	}
	d.AppendChild(s)
	d.AppendChild(body)
	return d
}

func element(a atom.Atom, n *render.Node, attrs ...string) *html.Node {
	el := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	el.Attr = append(el.Attr, html.Attribute{Key: "class", Val: "node " + strings.ReplaceAll(string(n.Kind), "_", "-")})
	for i := 0; i+1 < len(attrs); i += 2 {
		el.Attr = append(el.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return el
}

func span(n *render.Node, text string) *html.Node {
	s := element(atom.Span, n)
	s.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return s
}

func citation(c *render.Citation) *html.Node {
	class := "citation"
	if !c.Inline {
		class += " hover"
	}
	b := &html.Node{Type: html.ElementNode, DataAtom: atom.Button, Data: "button", Attr: []html.Attribute{
		{Key: "type", Val: "button"},
		{Key: "class", Val: class},
		{Key: "data-page", Val: strconv.Itoa(c.Page)},
	}}
	title := c.Snippet
	if title == "" {
		title = c.Reasoning
	}
	if title != "" {
		b.Attr = append(b.Attr, html.Attribute{Key: "title", Val: title})
	}
	b.AppendChild(&html.Node{Type: html.TextNode, Data: "p. " + strconv.Itoa(c.Page)})
	return b
}

// markdown converts long read-only text (over render.MultilineThreshold
// runes) with goldmark and grafts the result into the tree.
func markdown(n *render.Node) (*html.Node, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(n.Text), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	div := element(atom.Div, n)
	div.Attr[0].Val += " markdown"
	nodes, err := html.ParseFragment(&buf, &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"})
	if err != nil {
		return nil, fmt.Errorf("parse markdown html: %w", err)
	}
	for _, c := range nodes {
		div.AppendChild(c)
	}
	return div, nil
}
