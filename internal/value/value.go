// Package value defines jin's unified merge-value model: the canonical
// intermediate form that every format codec parses into and serializes
// from, and that the merge kernel operates on directly.
package value

import "fmt"

// Kind discriminates the variants of Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

// Value is jin's recursive sum type: Null | Bool | Int | Float | String |
// Array(seq of Value) | Object(ordered map string -> Value).
type Value struct {
	kind Kind

	boolVal   bool
	intVal    int64
	floatVal  float64
	stringVal string
	arrayVal  []Value
	object    *Object
}

// Object is an order-preserving string-keyed map. Insertion order is the
// canonical order used by every codec and by the merge kernel's
// determinism guarantee.
type Object struct {
	keys  []string
	index map[string]int
	vals  []Value
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

// Set inserts or overwrites key, appending it at the end if new.
func (o *Object) Set(key string, v Value) {
	if i, ok := o.index[key]; ok {
		o.vals[i] = v
		return
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, v)
}

// Get returns the value for key and whether it is present.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	i, ok := o.index[key]
	if !ok {
		return Value{}, false
	}
	return o.vals[i], true
}

// Delete removes key if present, preserving the order of remaining keys.
func (o *Object) Delete(key string) {
	i, ok := o.index[key]
	if !ok {
		return
	}
	o.keys = append(o.keys[:i], o.keys[i+1:]...)
	o.vals = append(o.vals[:i], o.vals[i+1:]...)
	delete(o.index, key)
	for k, idx := range o.index {
		if idx > i {
			o.index[k] = idx - 1
		}
	}
}

// Keys returns the object's keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Clone returns a deep-enough copy: new key/value slices, values copied
// by the ordinary Value copy rules (Array/Object values are themselves
// copy-on-write-free since this codebase always rebuilds them via Set).
func (o *Object) Clone() *Object {
	n := NewObject()
	if o == nil {
		return n
	}
	for i, k := range o.keys {
		n.Set(k, o.vals[i])
	}
	return n
}

func Null() Value                 { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, boolVal: b} }
func Int(i int64) Value           { return Value{kind: KindInt, intVal: i} }
func Float(f float64) Value       { return Value{kind: KindFloat, floatVal: f} }
func String(s string) Value       { return Value{kind: KindString, stringVal: s} }
func Array(items []Value) Value   { return Value{kind: KindArray, arrayVal: items} }
func ObjectValue(o *Object) Value { return Value{kind: KindObject, object: o} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) IsObject() bool { return v.kind == KindObject }
func (v Value) IsArray() bool { return v.kind == KindArray }

func (v Value) AsBool() (bool, bool)     { return v.boolVal, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)     { return v.intVal, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) { return v.floatVal, v.kind == KindFloat }
func (v Value) AsStr() (string, bool)    { return v.stringVal, v.kind == KindString }
func (v Value) AsArray() ([]Value, bool) { return v.arrayVal, v.kind == KindArray }

// AsObject returns the underlying *Object, or nil if v is not an Object.
func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.object, true
}

// ContainsNullRecursive reports whether v or any value reachable from it
// is Null. Used by the TOML codec to fail fast with UnsupportedForTomlNull
// before any output bytes are produced.
func ContainsNullRecursive(v Value) bool {
	switch v.kind {
	case KindNull:
		return true
	case KindArray:
		for _, e := range v.arrayVal {
			if ContainsNullRecursive(e) {
				return true
			}
		}
		return false
	case KindObject:
		if v.object == nil {
			return false
		}
		for _, k := range v.object.keys {
			val, _ := v.object.Get(k)
			if ContainsNullRecursive(val) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// String implements fmt.Stringer for debugging/diagnostics only; it is
// not used by any codec.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.boolVal)
	case KindInt:
		return fmt.Sprintf("%d", v.intVal)
	case KindFloat:
		return fmt.Sprintf("%g", v.floatVal)
	case KindString:
		return fmt.Sprintf("%q", v.stringVal)
	case KindArray:
		return fmt.Sprintf("array[%d]", len(v.arrayVal))
	case KindObject:
		return fmt.Sprintf("object[%d]", v.object.Len())
	default:
		return "<invalid value>"
	}
}
