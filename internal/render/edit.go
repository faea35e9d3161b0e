package render

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/dgallion1/protoreview/internal/tree"
)

// ErrNotANumber is returned when a number editor is committed with text that
// does not parse to a finite number. The session stays open.
var ErrNotANumber = errors.New("not a number")

// Key is a key press delivered to an edit session.
type Key int

const (
	KeyEnter Key = iota + 1
	KeyEscape
)

// EditSession is the transient edit mode of one leaf. It holds a scratch
// copy of the value; the rendered node is never modified.
type EditSession struct {
	node    *Node
	scratch string
	active  bool
}

// Edit enters edit mode on an editor or placeholder node. It returns nil for
// nodes that cannot be edited, including toggles, which have no edit mode.
func (n *Node) Edit() *EditSession {
	if !n.Editable() {
		return nil
	}
	return &EditSession{node: n, scratch: n.Text, active: true}
}

// Active reports whether the session is still in edit mode.
func (s *EditSession) Active() bool { return s.active }

// Multiline reports whether Enter inserts a newline instead of committing.
func (s *EditSession) Multiline() bool { return s.node.Multiline }

// Text returns the scratch text.
func (s *EditSession) Text() string { return s.scratch }

// Set replaces the scratch text.
func (s *EditSession) Set(text string) {
	if s.active {
		s.scratch = text
	}
}

// Display is what the leaf shows: the scratch copy while editing, the
// original value otherwise.
func (s *EditSession) Display() string {
	if s.active {
		return s.scratch
	}
	return s.node.Text
}

// Press handles a key. Enter commits a single-line editor and inserts a
// newline in a multi-line one; Escape cancels.
func (s *EditSession) Press(k Key) error {
	if !s.active {
		return nil
	}
	switch k {
	case KeyEnter:
		if s.node.Multiline {
			s.scratch += "\n"
			return nil
		}
		return s.Commit()
	case KeyEscape:
		s.Cancel()
	}
	return nil
}

// Commit emits the scratch value as an edit intent and leaves edit mode.
// Committing an empty placeholder leaves edit mode without an intent.
func (s *EditSession) Commit() error {
	if !s.active {
		return nil
	}
	n := s.node
	var v tree.Value
	switch n.Kind {
	case KindPlaceholder:
		if strings.TrimSpace(s.scratch) == "" {
			s.active = false
			return nil
		}
		v = tree.String(s.scratch)
	default:
		switch n.Value.(type) {
		case tree.Number:
			f, err := strconv.ParseFloat(strings.TrimSpace(s.scratch), 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return ErrNotANumber
			}
			v = tree.Number(f)
		default:
			v = tree.String(s.scratch)
		}
	}
	s.active = false
	n.ctx.OnEdit(n.Path, v)
	return nil
}

// Cancel discards the scratch copy and leaves edit mode without an intent.
func (s *EditSession) Cancel() {
	s.active = false
	s.scratch = s.node.Text
}
