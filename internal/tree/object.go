package tree

import (
	"bytes"
	"encoding/json"
	"slices"
	"sort"
)

// Object is a JSON object that remembers member order.
type Object struct {
	keys   []string
	fields map[string]Value
}

// Member is a key/value pair used to build objects in order.
type Member struct {
	Key   string
	Value Value
}

// NewObject builds an object from members in the given order. A repeated key
// keeps its first position and its last value.
func NewObject(members ...Member) *Object {
	o := &Object{fields: make(map[string]Value, len(members))}
	for _, m := range members {
		o.set(m.Key, m.Value)
	}
	return o
}

// set is only used while an object is under construction.
func (o *Object) set(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Len returns the number of members.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns member keys in document order. The slice is a copy.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return slices.Clone(o.keys)
}

// Get returns the member stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[key]
	return v, ok
}

// Has reports whether key is a member.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// With returns a copy of o with key set to v. Existing keys keep their
// position; new keys are appended.
func (o *Object) With(key string, v Value) *Object {
	out := o.clone()
	out.set(key, v)
	return out
}

// Pick returns a new object holding only the listed keys that exist, in o's
// order. Member values are shared, not copied.
func (o *Object) Pick(keys ...string) *Object {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := NewObject()
	for _, k := range o.Keys() {
		if want[k] {
			out.set(k, o.fields[k])
		}
	}
	return out
}

// Members returns the members in order.
func (o *Object) Members() []Member {
	out := make([]Member, 0, o.Len())
	for _, k := range o.Keys() {
		out = append(out, Member{Key: k, Value: o.fields[k]})
	}
	return out
}

func (o *Object) clone() *Object {
	out := &Object{fields: make(map[string]Value, o.Len()+1)}
	if o == nil {
		return out
	}
	out.keys = slices.Clone(o.keys)
	for k, v := range o.fields {
		out.fields[k] = v
	}
	return out
}

func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalValue(o.fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
