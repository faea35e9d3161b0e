// Package provenance resolves source citations attached to document nodes.
//
// Two conventions are in use. An object may carry its own citation under a
// "provenance" member, or a primitive field K may be cited by a sibling
// member named "K_provenance". Lookups are pure and never fail: anything
// without a recognizable page number resolves to nothing.
package provenance

import (
	"math"
	"strconv"
	"strings"

	"github.com/dgallion1/protoreview/internal/tree"
)

const (
	// InlineKey is the member holding an object's own citation.
	InlineKey = "provenance"
	// SiblingSuffix marks a member that cites its primitive sibling.
	SiblingSuffix = "_provenance"
)

// Record is a citation back into the source document.
type Record struct {
	Explicit *Explicit `json:"explicit,omitempty"`
	Derived  *Derived  `json:"derived,omitempty"`
}

// Explicit points at a printed page and optionally quotes it.
type Explicit struct {
	PageNumber  int    `json:"page_number"`
	TextSnippet string `json:"text_snippet,omitempty"`
}

// Derived explains a value inferred rather than quoted.
type Derived struct {
	Reasoning         string   `json:"reasoning,omitempty"`
	SupportingContext []string `json:"supporting_context,omitempty"`
}

// PageNumber returns the cited logical page.
func (r Record) PageNumber() int {
	if r.Explicit == nil {
		return 0
	}
	return r.Explicit.PageNumber
}

// Resolve returns the inline citation of obj.
func Resolve(obj *tree.Object) (Record, bool) {
	v, ok := obj.Get(InlineKey)
	if !ok {
		return Record{}, false
	}
	return FromValue(v)
}

// ResolveSibling returns the citation stored under key + "_provenance".
func ResolveSibling(obj *tree.Object, key string) (Record, bool) {
	v, ok := obj.Get(SiblingKey(key))
	if !ok {
		return Record{}, false
	}
	return FromValue(v)
}

// Inline returns the citation of v when v is an object (not an array) that
// carries one.
func Inline(v tree.Value) (Record, bool) {
	obj, ok := tree.AsObject(v)
	if !ok {
		return Record{}, false
	}
	return Resolve(obj)
}

// SiblingKey names the member that cites key.
func SiblingKey(key string) string { return key + SiblingSuffix }

// IsMetadataKey reports whether key holds citation metadata rather than
// document content.
func IsMetadataKey(key string) bool {
	switch key {
	case InlineKey, "section_number", "text_snippet":
		return true
	}
	return strings.HasSuffix(key, SiblingSuffix)
}

// FromValue interprets a provenance member. The structured form
// {explicit: {page_number, text_snippet}, derived: {...}} is preferred; a
// legacy flat {page_number, text_snippet} is accepted. Both snake_case and
// camelCase spellings are recognized.
func FromValue(v tree.Value) (Record, bool) {
	obj, ok := tree.AsObject(v)
	if !ok {
		return Record{}, false
	}
	var rec Record
	if exp, ok := member(obj, "explicit"); ok {
		if eo, ok := tree.AsObject(exp); ok {
			if page, ok := pageNumber(eo); ok {
				rec.Explicit = &Explicit{PageNumber: page, TextSnippet: snippet(eo)}
			}
		}
	}
	if rec.Explicit == nil {
		if page, ok := pageNumber(obj); ok {
			rec.Explicit = &Explicit{PageNumber: page, TextSnippet: snippet(obj)}
		}
	}
	if rec.Explicit == nil {
		return Record{}, false
	}
	if der, ok := member(obj, "derived"); ok {
		rec.Derived = derived(der)
	}
	return rec, true
}

func pageNumber(obj *tree.Object) (int, bool) {
	v, ok := member(obj, "page_number", "pageNumber")
	if !ok {
		return 0, false
	}
	var f float64
	switch x := v.(type) {
	case tree.Number:
		f = float64(x)
	case tree.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func snippet(obj *tree.Object) string {
	v, _ := member(obj, "text_snippet", "textSnippet")
	s, _ := v.(tree.String)
	return string(s)
}

func derived(v tree.Value) *Derived {
	obj, ok := tree.AsObject(v)
	if !ok {
		return nil
	}
	d := &Derived{}
	if r, ok := member(obj, "reasoning"); ok {
		s, _ := r.(tree.String)
		d.Reasoning = string(s)
	}
	if sc, ok := member(obj, "supporting_context", "supportingContext"); ok {
		switch x := sc.(type) {
		case tree.Array:
			for _, e := range x {
				if s, ok := e.(tree.String); ok {
					d.SupportingContext = append(d.SupportingContext, string(s))
				}
			}
		case tree.String:
			d.SupportingContext = []string{string(x)}
		}
	}
	if d.Reasoning == "" && len(d.SupportingContext) == 0 {
		return nil
	}
	return d
}

func member(obj *tree.Object, names ...string) (tree.Value, bool) {
	for _, n := range names {
		if v, ok := obj.Get(n); ok && !tree.IsNull(v) {
			return v, true
		}
	}
	return nil, false
}
