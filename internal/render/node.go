// Package render turns any document value into a displayable, editable
// description.
//
// Render is a pure function of (value, path, context). The returned Node
// tree describes what to show; behaviour (toggling, editing, following a
// citation) is reached through methods on the nodes and only ever calls the
// callbacks supplied in the Context. Presentation state such as which
// subtrees are expanded is layered on top by the caller.
package render

import (
	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/provenance"
	"github.com/dgallion1/protoreview/internal/tree"
)

// Kind identifies what a Node shows.
type Kind string

const (
	KindNotSpecified Kind = "not_specified"
	KindPlaceholder  Kind = "placeholder"
	KindText         Kind = "text"
	KindToggle       Kind = "toggle"
	KindEditor       Kind = "editor"
	KindNone         Kind = "none"
	KindTags         Kind = "tags"
	KindList         Kind = "list"
	KindObject       Kind = "object"
	KindField        Kind = "field"
	KindSection      Kind = "section"
	KindCited        Kind = "cited"
	KindNoDetails    Kind = "no_details"
)

// Marker texts.
const (
	TextNotSpecified = "Not specified"
	TextNone         = "None"
	TextNoDetails    = "No details"
)

// Context carries the caller's edit and navigation hooks.
type Context struct {
	Editable   bool
	OnEdit     func(docpath.Path, tree.Value)
	OnCitation func(page int)
}

func (c Context) canEdit() bool { return c.Editable && c.OnEdit != nil }

// Node is one element of a rendered description.
type Node struct {
	Kind      Kind         `json:"kind"`
	Path      docpath.Path `json:"path"`
	Key       string       `json:"key,omitempty"`
	Label     string       `json:"label,omitempty"`
	Text      string       `json:"text,omitempty"`
	Value     tree.Value   `json:"value,omitempty"`
	Multiline bool         `json:"multiline,omitempty"`
	Citation  *Citation    `json:"citation,omitempty"`
	Children  []*Node      `json:"children,omitempty"`

	ctx Context
}

// Citation is the affordance that navigates to a cited source page.
type Citation struct {
	Page      int    `json:"page"`
	Snippet   string `json:"snippet,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	// Inline citations are always visible; the rest show on hover.
	Inline bool `json:"inline"`

	Record provenance.Record `json:"-"`

	navigate func(int)
}

func newCitation(rec provenance.Record, inline bool, ctx Context) *Citation {
	c := &Citation{
		Page:     rec.PageNumber(),
		Inline:   inline,
		Record:   rec,
		navigate: ctx.OnCitation,
	}
	if rec.Explicit != nil {
		c.Snippet = rec.Explicit.TextSnippet
	}
	if rec.Derived != nil {
		c.Reasoning = rec.Derived.Reasoning
	}
	return c
}

// Activate follows the citation. It reports false when no navigation hook
// was supplied.
func (c *Citation) Activate() bool {
	if c == nil || c.navigate == nil {
		return false
	}
	c.navigate(c.Page)
	return true
}

// Toggle flips a boolean leaf by emitting an edit intent with the negated
// value. It reports false for any other kind of node.
func (n *Node) Toggle() bool {
	if n == nil || n.Kind != KindToggle {
		return false
	}
	b, _ := n.Value.(tree.Bool)
	n.ctx.OnEdit(n.Path, !b)
	return true
}

// Editable reports whether Edit will return a session.
func (n *Node) Editable() bool {
	return n != nil && (n.Kind == KindEditor || n.Kind == KindPlaceholder)
}

// Walk visits n and its descendants in pre-order until fn returns false.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// Find returns the outermost node addressed by p.
func (n *Node) Find(p docpath.Path) *Node {
	var found *Node
	Walk(n, func(c *Node) bool {
		if c.Path.Equal(p) {
			found = c
			return false
		}
		return true
	})
	return found
}

// Leaf returns the innermost node addressed by p, which is the value itself
// rather than the field or section wrapping it.
func (n *Node) Leaf(p docpath.Path) *Node {
	var found *Node
	Walk(n, func(c *Node) bool {
		if c.Path.Equal(p) {
			found = c
		}
		return true
	})
	return found
}

// Citations collects every citation in the rendered tree.
func Citations(n *Node) []*Citation {
	var out []*Citation
	Walk(n, func(c *Node) bool {
		if c.Citation != nil {
			out = append(out, c.Citation)
		}
		return true
	})
	return out
}
