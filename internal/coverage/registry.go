// Package coverage tracks which parts of a loaded document a reviewer has
// actually been shown.
package coverage

import (
	"math"
	"sync"

	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/provenance"
	"github.com/dgallion1/protoreview/internal/tree"
)

// Stats summarizes coverage. Percentage is rounded half up.
type Stats struct {
	Rendered   int `json:"rendered"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Registry holds the coverage entries of one document. Marks are monotonic:
// once rendered, a path stays rendered until the registry is re-initialized.
// The zero value is an uninitialized registry whose accessors report
// nothing rendered.
type Registry struct {
	mu       sync.Mutex
	doc      tree.Value
	universe []docpath.Path
	rendered map[string]bool
}

// New returns an initialized registry.
func New(doc tree.Value, allow []docpath.Path) *Registry {
	r := &Registry{}
	r.Initialize(doc, allow)
	return r
}

// Initialize resets the registry for doc. The universe is the document's
// top-level keys other than citation metadata, or allow when it is
// non-empty; entries of allow that do not exist in doc are dropped.
func (r *Registry) Initialize(doc tree.Value, allow []docpath.Path) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc = doc
	r.rendered = make(map[string]bool)
	r.universe = nil
	seen := make(map[string]bool)
	add := func(p docpath.Path) {
		k := p.String()
		if len(p) == 0 || seen[k] || !tree.Exists(doc, p) {
			return
		}
		seen[k] = true
		r.universe = append(r.universe, p)
	}
	if len(allow) > 0 {
		for _, p := range allow {
			add(p)
		}
		return
	}
	if obj, ok := tree.AsObject(doc); ok {
		for _, k := range obj.Keys() {
			if provenance.IsMetadataKey(k) {
				continue
			}
			add(docpath.Of(k))
		}
	}
}

// Rebind swaps in a refetched copy of the same document, keeping marks.
func (r *Registry) Rebind(doc tree.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc
}

// Initialized reports whether Initialize has run.
func (r *Registry) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rendered != nil
}

// MarkRendered flags every universe entry that is an ancestor of, equal to,
// or beneath one of paths. Paths that touch no entry are ignored.
func (r *Registry) MarkRendered(paths ...docpath.Path) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rendered == nil {
		return
	}
	for _, p := range paths {
		for _, u := range r.universe {
			if p.HasPrefix(u) || u.HasPrefix(p) {
				r.rendered[u.String()] = true
			}
		}
	}
}

// IsRendered reports whether the universe entry p has been marked.
func (r *Registry) IsRendered(p docpath.Path) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rendered[p.String()]
}

// Stats returns rendered and total entry counts.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return statsFor(len(r.rendered), len(r.universe))
}

func statsFor(rendered, total int) Stats {
	s := Stats{Rendered: rendered, Total: total, Percentage: 100}
	if total > 0 {
		s.Percentage = int(math.Floor(float64(rendered)*100/float64(total) + 0.5))
	}
	return s
}

// UnrenderedPaths lists universe entries never marked, in universe order.
func (r *Registry) UnrenderedPaths() []docpath.Path {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []docpath.Path
	for _, u := range r.universe {
		if !r.rendered[u.String()] {
			out = append(out, u)
		}
	}
	return out
}

// UnrenderedData returns the top-level members of the document that no mark
// has touched, with their original subtrees intact.
func (r *Registry) UnrenderedData() *tree.Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := tree.AsObject(r.doc)
	if !ok || r.rendered == nil {
		return tree.NewObject()
	}
	touched := make(map[string]bool)
	tracked := make(map[string]bool)
	for _, u := range r.universe {
		top := u[0].Key()
		tracked[top] = true
		if r.rendered[u.String()] {
			touched[top] = true
		}
	}
	var keep []string
	for _, k := range obj.Keys() {
		if tracked[k] && !touched[k] {
			keep = append(keep, k)
		}
	}
	return obj.Pick(keep...)
}
