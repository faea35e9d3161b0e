package layout

import (
	"strconv"
	"strings"

	"github.com/dgallion1/protoreview/internal/coverage"
	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/render"
	"github.com/dgallion1/protoreview/internal/tree"
)

// UnmappedTabID identifies the fallback fragment.
const UnmappedTabID = "unmapped"

// Mount renders tab against doc and marks every field it shows as rendered
// in reg. Fields absent from doc render as "not specified" and are not
// marked. reg may be nil when coverage is not tracked.
func Mount(tab Tab, doc tree.Value, ctx render.Context, reg *coverage.Registry) *render.Node {
	n := &render.Node{
		Kind:     render.KindObject,
		Path:     docpath.Root,
		Key:      tab.ID,
		Label:    tab.Title,
		Children: make([]*render.Node, 0, len(tab.Fields)),
	}
	var shown []docpath.Path
	for _, f := range tab.Fields {
		p := f.Location()
		field := mountField(doc, p, ctx)
		if f.Label != "" {
			field.Label = f.Label
		}
		if tree.Exists(doc, p) {
			shown = append(shown, p)
		}
		n.Children = append(n.Children, field)
	}
	if reg != nil {
		reg.MarkRendered(shown...)
	}
	return n
}

func mountField(doc tree.Value, p docpath.Path, ctx render.Context) *render.Node {
	last, _ := p.Last()
	if !last.IsIndex() {
		if parent, ok := tree.Get(doc, p.Parent()); ok {
			if obj, ok := tree.AsObject(parent); ok && obj.Has(last.Key()) {
				return render.Member(obj, last.Key(), p, ctx)
			}
		}
	}
	v, ok := tree.Get(doc, p)
	if !ok {
		v = tree.Null{}
	}
	return &render.Node{
		Kind:     render.KindField,
		Path:     p,
		Key:      last.String(),
		Label:    fieldLabel(p),
		Children: []*render.Node{render.Render(v, p, ctx)},
	}
}

// fieldLabel humanizes the last key of p. Trailing indices are shown the way
// list items are numbered, so arms[0] reads "Arms #1".
func fieldLabel(p docpath.Path) string {
	var suffix string
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].IsIndex() {
			suffix = " #" + strconv.Itoa(p[i].Index()+1) + suffix
			continue
		}
		return render.Humanize(p[i].Key()) + suffix
	}
	return strings.TrimPrefix(suffix, " ")
}

// Unmapped renders everything in reg that no tab has shown. It does not mark
// anything: showing the leftovers is not the same as placing them.
func Unmapped(reg *coverage.Registry, ctx render.Context) *render.Node {
	n := render.Render(reg.UnrenderedData(), docpath.Root, ctx)
	n.Key = UnmappedTabID
	n.Label = "Unmapped Data"
	return n
}
