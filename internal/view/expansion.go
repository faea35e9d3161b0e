// Package view presents rendered nodes as HTML or terminal text.
//
// Which subtrees are open is presentation state, kept here in an Expansion
// rather than in the rendered nodes.
package view

import (
	"sync"

	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/render"
)

// DefaultDepth is how many collapsible levels start open.
const DefaultDepth = 2

// Expansion records which collapsible nodes a reviewer opened or closed. A
// nil *Expansion shows everything open.
type Expansion struct {
	mu    sync.Mutex
	depth int
	state map[string]bool
}

// NewExpansion starts with depth collapsible levels open.
func NewExpansion(depth int) *Expansion {
	return &Expansion{depth: depth, state: make(map[string]bool)}
}

// Collapsible reports whether n can be opened and closed.
func Collapsible(n *render.Node) bool {
	switch n.Kind {
	case render.KindSection, render.KindList:
		return len(n.Children) > 0
	}
	return false
}

// Open reports whether n is expanded when it sits depth collapsible levels
// down.
func (e *Expansion) Open(n *render.Node, depth int) bool {
	if e == nil {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if open, ok := e.state[n.Path.String()]; ok {
		return open
	}
	return depth < e.depth
}

// Set opens or closes the node at p.
func (e *Expansion) Set(p docpath.Path, open bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state[p.String()] = open
}

// Toggle flips the node at p from its current state and returns the new one.
func (e *Expansion) Toggle(n *render.Node, depth int) bool {
	open := !e.Open(n, depth)
	e.Set(n.Path, open)
	return open
}

// Reset forgets every explicit choice.
func (e *Expansion) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.state)
}
