package render

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/provenance"
	"github.com/dgallion1/protoreview/internal/tree"
)

// MultilineThreshold is the string length above which editors default to
// multi-line mode.
const MultilineThreshold = 100

// Render describes v, located at p, for display.
func Render(v tree.Value, p docpath.Path, ctx Context) *Node {
	return render(v, p, ctx, false)
}

// cited is true when an enclosing wrapper already shows v's own citation.
func render(v tree.Value, p docpath.Path, ctx Context, cited bool) *Node {
	switch x := v.(type) {
	case nil, tree.Null:
		return renderLeaf(tree.Null{}, p, ctx)
	case tree.Bool, tree.Number, tree.String:
		return renderLeaf(x, p, ctx)
	case tree.Array:
		return renderArray(x, p, ctx)
	case *tree.Object:
		if x == nil {
			return renderLeaf(tree.Null{}, p, ctx)
		}
		return renderObject(x, p, ctx, cited)
	}
	return &Node{Kind: KindNotSpecified, Path: p, Text: TextNotSpecified}
}

func renderLeaf(v tree.Value, p docpath.Path, ctx Context) *Node {
	n := &Node{Path: p, ctx: ctx}
	switch x := v.(type) {
	case tree.Null:
		if ctx.canEdit() {
			n.Kind = KindPlaceholder
			return n
		}
		n.Kind = KindNotSpecified
		n.Text = TextNotSpecified
	case tree.Bool:
		n.Value = x
		n.Text = boolText(bool(x))
		n.Kind = KindText
		if ctx.canEdit() {
			n.Kind = KindToggle
		}
	case tree.Number:
		n.Value = x
		n.Text = x.String()
		n.Kind = KindText
		if ctx.canEdit() {
			n.Kind = KindEditor
		}
	case tree.String:
		n.Value = x
		n.Text = string(x)
		n.Multiline = utf8.RuneCountInString(n.Text) > MultilineThreshold
		switch {
		case ctx.canEdit():
			n.Kind = KindEditor
		case strings.TrimSpace(n.Text) == "":
			n.Kind = KindNotSpecified
			n.Text = TextNotSpecified
		default:
			n.Kind = KindText
		}
	}
	return n
}

func renderArray(arr tree.Array, p docpath.Path, ctx Context) *Node {
	if len(arr) == 0 {
		return &Node{Kind: KindNone, Path: p, Text: TextNone}
	}
	if allTags(arr) {
		n := &Node{Kind: KindTags, Path: p, Children: make([]*Node, 0, len(arr))}
		for i, e := range arr {
			n.Children = append(n.Children, renderLeaf(e, p.At(i), ctx))
		}
		return n
	}
	n := &Node{Kind: KindList, Path: p, Children: make([]*Node, 0, len(arr))}
	for i, e := range arr {
		ep := p.At(i)
		if rec, ok := provenance.Inline(e); ok {
			n.Children = append(n.Children, &Node{
				Kind:     KindCited,
				Path:     ep,
				Citation: newCitation(rec, true, ctx),
				Children: []*Node{render(e, ep, ctx, true)},
			})
			continue
		}
		n.Children = append(n.Children, render(e, ep, ctx, false))
	}
	return n
}

func allTags(arr tree.Array) bool {
	for _, e := range arr {
		switch e.(type) {
		case tree.String, tree.Number:
		default:
			return false
		}
	}
	return true
}

func renderObject(obj *tree.Object, p docpath.Path, ctx Context, cited bool) *Node {
	n := &Node{Kind: KindObject, Path: p}
	own, hasOwn := provenance.Resolve(obj)
	if hasOwn && !cited {
		n.Citation = newCitation(own, true, ctx)
	}

	for _, m := range obj.Members() {
		if provenance.IsMetadataKey(m.Key) {
			continue
		}
		n.Children = append(n.Children, member(obj, m.Key, m.Value, p.Child(m.Key), ctx))
	}

	if len(n.Children) == 0 {
		// The citation stays attached even with nothing to anchor it to.
		n.Kind = KindNoDetails
		n.Text = TextNoDetails
	}
	return n
}

// Member renders the member key of obj, addressed by p, as a labelled field
// or cited section. It applies the same citation rules as an object render
// and is meant for layouts that pick individual members out of a document.
func Member(obj *tree.Object, key string, p docpath.Path, ctx Context) *Node {
	v, _ := obj.Get(key)
	return member(obj, key, v, p, ctx)
}

func member(obj *tree.Object, key string, v tree.Value, p docpath.Path, ctx Context) *Node {
	if rec, ok := provenance.Inline(v); ok {
		return &Node{
			Kind:     KindSection,
			Path:     p,
			Key:      key,
			Label:    Humanize(key),
			Citation: newCitation(rec, true, ctx),
			Children: []*Node{render(v, p, ctx, true)},
		}
	}
	field := &Node{
		Kind:     KindField,
		Path:     p,
		Key:      key,
		Label:    Humanize(key),
		Children: []*Node{render(v, p, ctx, false)},
	}
	if isLeaf(v) {
		if rec, ok := provenance.ResolveSibling(obj, key); ok {
			field.Citation = newCitation(rec, false, ctx)
		}
	}
	return field
}

// isLeaf covers primitives and nulls; containers carry inline provenance
// instead of a sibling.
func isLeaf(v tree.Value) bool {
	return tree.IsPrimitive(v) || tree.IsNull(v)
}

func boolText(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
