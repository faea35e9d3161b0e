// Package tree models extracted-document data as a closed set of JSON-shaped
// variants.
//
// Values are immutable once built. Edits produce a new root through Set;
// nothing in this package mutates a value that has been handed out.
package tree

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is one node of a document: Null, Bool, Number, String, Array or
// *Object. A nil Value means the node is absent and is treated like Null.
type Value interface {
	isValue()
	json.Marshaler
}

// Null is the JSON null.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Number is a JSON number. It is an IEEE 754 double, so integers beyond
// 2^53 do not survive a decode/encode round trip exactly.
type Number float64

// String is a JSON string.
type String string

// Array is an ordered list of values.
type Array []Value

func (Null) isValue()    {}
func (Bool) isValue()    {}
func (Number) isValue()  {}
func (String) isValue()  {}
func (Array) isValue()   {}
func (*Object) isValue() {}

func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (b Bool) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(n.String()), nil
}

func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalValue(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// String formats the number without exponent or trailing zeros where
// possible, the way a reviewer would type it.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return v.MarshalJSON()
}

// IsNull reports whether v is absent or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// IsPrimitive reports whether v is a Bool, Number or String.
func IsPrimitive(v Value) bool {
	switch v.(type) {
	case Bool, Number, String:
		return true
	}
	return false
}

// AsObject returns v as an object when it is one.
func AsObject(v Value) (*Object, bool) {
	o, ok := v.(*Object)
	return o, ok && o != nil
}

// Equal reports deep equality. Object member order is not significant.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch av := a.(type) {
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Object:
		bv, ok := b.(*Object)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.Keys() {
			other, ok := bv.Get(k)
			if !ok {
				return false
			}
			mine, _ := av.Get(k)
			if !Equal(mine, other) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts decoded Go values (as produced by encoding/json or
// yaml.v3 into interface{}) to a Value. Map members are sorted by key since
// Go maps carry no order.
func FromAny(x any) Value {
	switch v := x.(type) {
	case nil:
		return Null{}
	case Value:
		return v
	case bool:
		return Bool(v)
	case string:
		return String(v)
	case float64:
		return Number(v)
	case float32:
		return Number(v)
	case int:
		return Number(v)
	case int64:
		return Number(v)
	case uint64:
		return Number(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return String(v.String())
		}
		return Number(f)
	case []any:
		arr := make(Array, len(v))
		for i, e := range v {
			arr[i] = FromAny(e)
		}
		return arr
	case map[string]any:
		obj := NewObject()
		for _, k := range sortedKeys(v) {
			obj.set(k, FromAny(v[k]))
		}
		return obj
	}
	return Null{}
}

// ToAny converts a Value back to plain Go values for generic encoders.
func ToAny(v Value) any {
	switch x := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(x)
	case Number:
		return float64(x)
	case String:
		return string(x)
	case Array:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = ToAny(e)
		}
		return out
	case *Object:
		out := make(map[string]any, x.Len())
		for _, k := range x.Keys() {
			e, _ := x.Get(k)
			out[k] = ToAny(e)
		}
		return out
	}
	return nil
}
