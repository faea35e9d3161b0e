package tree

import (
	"errors"
	"fmt"

	"github.com/dgallion1/protoreview/internal/docpath"
)

// ErrPathMismatch is returned by Set when a path does not fit the document
// shape: an index into a non-array, a key into a non-object, or an index out
// of range.
var ErrPathMismatch = errors.New("path does not match document shape")

// Get returns the value at p. ok is false when any segment is missing.
func Get(root Value, p docpath.Path) (Value, bool) {
	cur := root
	for _, seg := range p {
		if seg.IsIndex() {
			arr, ok := cur.(Array)
			if !ok || seg.Index() >= len(arr) {
				return nil, false
			}
			cur = arr[seg.Index()]
			continue
		}
		obj, ok := AsObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj.Get(seg.Key())
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Exists reports whether p addresses a node in root.
func Exists(root Value, p docpath.Path) bool {
	_, ok := Get(root, p)
	return ok
}

// Set returns a new root with the value at p replaced by v. Only the nodes
// along p are copied. A missing final object key is created; missing
// intermediate keys are not.
func Set(root Value, p docpath.Path, v Value) (Value, error) {
	if v == nil {
		v = Null{}
	}
	if len(p) == 0 {
		return v, nil
	}
	seg := p[0]
	rest := p[1:]
	if seg.IsIndex() {
		arr, ok := root.(Array)
		if !ok {
			return nil, fmt.Errorf("%w: index %d into %s", ErrPathMismatch, seg.Index(), kindName(root))
		}
		if seg.Index() >= len(arr) {
			return nil, fmt.Errorf("%w: index %d out of range (len %d)", ErrPathMismatch, seg.Index(), len(arr))
		}
		child, err := Set(arr[seg.Index()], rest, v)
		if err != nil {
			return nil, err
		}
		out := make(Array, len(arr))
		copy(out, arr)
		out[seg.Index()] = child
		return out, nil
	}
	obj, ok := AsObject(root)
	if !ok {
		return nil, fmt.Errorf("%w: key %q into %s", ErrPathMismatch, seg.Key(), kindName(root))
	}
	cur, exists := obj.Get(seg.Key())
	if !exists && len(rest) > 0 {
		return nil, fmt.Errorf("%w: missing key %q", ErrPathMismatch, seg.Key())
	}
	child, err := Set(cur, rest, v)
	if err != nil {
		return nil, err
	}
	return obj.With(seg.Key(), child), nil
}

// KindName names the variant of v for messages.
func KindName(v Value) string { return kindName(v) }

func kindName(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case *Object:
		return "object"
	}
	return "unknown"
}
