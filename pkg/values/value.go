package values

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the variants a Value can hold.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindNull
	KindScalar
	KindObject
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ErrNotContainer is returned by Set when a path traverses through a scalar.
var ErrNotContainer = errors.New("values: segment does not address an object or list")

// Value is an immutable node in a form values tree. The zero Value is
// absent. Values share structure, so two Values that are Same were produced
// by the same construction or update and are guaranteed to be Equal.
type Value struct {
	n *node
}

type node struct {
	kind   Kind
	scalar any
	object map[string]Value
	list   []Value
}

// Null returns an explicit null value.
func Null() Value {
	return Value{n: &node{kind: KindNull}}
}

// Scalar wraps a leaf value. Nil maps to Null.
func Scalar(v any) Value {
	if v == nil {
		return Null()
	}
	return Value{n: &node{kind: KindScalar, scalar: v}}
}

// String is shorthand for Scalar(s).
func String(s string) Value { return Scalar(s) }

// Object builds an object node. The map is copied.
func Object(fields map[string]Value) Value {
	clone := make(map[string]Value, len(fields))
	for k, v := range fields {
		clone[k] = v
	}
	return Value{n: &node{kind: KindObject, object: clone}}
}

// List builds a list node from the provided items.
func List(items ...Value) Value {
	return Value{n: &node{kind: KindList, list: append([]Value(nil), items...)}}
}

// FromAny converts decoded JSON/YAML style data (map[string]any, []any and
// scalars) into a Value. Typed slices and maps are converted via reflection.
func FromAny(raw any) Value {
	switch typed := raw.(type) {
	case nil:
		return Null()
	case Value:
		return typed
	case map[string]any:
		fields := make(map[string]Value, len(typed))
		for k, v := range typed {
			fields[k] = FromAny(v)
		}
		return Value{n: &node{kind: KindObject, object: fields}}
	case []any:
		items := make([]Value, len(typed))
		for i, v := range typed {
			items[i] = FromAny(v)
		}
		return Value{n: &node{kind: KindList, list: items}}
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return Scalar(typed)
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Scalar(raw)
		}
		fields := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			fields[iter.Key().String()] = FromAny(iter.Value().Interface())
		}
		return Value{n: &node{kind: KindObject, object: fields}}
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = FromAny(rv.Index(i).Interface())
		}
		return Value{n: &node{kind: KindList, list: items}}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return FromAny(rv.Elem().Interface())
	}
	return Scalar(raw)
}

// Any converts the Value back into plain Go data. Absent becomes nil.
func (v Value) Any() any {
	if v.n == nil {
		return nil
	}
	switch v.n.kind {
	case KindScalar:
		return v.n.scalar
	case KindObject:
		out := make(map[string]any, len(v.n.object))
		for k, child := range v.n.object {
			out[k] = child.Any()
		}
		return out
	case KindList:
		out := make([]any, len(v.n.list))
		for i, child := range v.n.list {
			out[i] = child.Any()
		}
		return out
	default:
		return nil
	}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind {
	if v.n == nil {
		return KindAbsent
	}
	return v.n.kind
}

// IsAbsent reports whether v is the zero Value.
func (v Value) IsAbsent() bool { return v.n == nil }

// IsList reports whether v holds a list.
func (v Value) IsList() bool { return v.Kind() == KindList }

// IsObject reports whether v holds an object.
func (v Value) IsObject() bool { return v.Kind() == KindObject }

// IsEmpty reports whether v is absent, null, or an empty container.
func (v Value) IsEmpty() bool {
	switch v.Kind() {
	case KindAbsent, KindNull:
		return true
	case KindObject:
		return len(v.n.object) == 0
	case KindList:
		return len(v.n.list) == 0
	default:
		return false
	}
}

// Interface returns the scalar payload, or nil for non-scalars.
func (v Value) Interface() any {
	if v.Kind() != KindScalar {
		return nil
	}
	return v.n.scalar
}

// Len returns the number of list items or object keys.
func (v Value) Len() int {
	switch v.Kind() {
	case KindObject:
		return len(v.n.object)
	case KindList:
		return len(v.n.list)
	default:
		return 0
	}
}

// Index returns the list item at i, or absent when out of range.
func (v Value) Index(i int) Value {
	if v.Kind() != KindList || i < 0 || i >= len(v.n.list) {
		return Value{}
	}
	return v.n.list[i]
}

// Key returns the object member named key, or absent.
func (v Value) Key(key string) Value {
	if v.Kind() != KindObject {
		return Value{}
	}
	return v.n.object[key]
}

// Keys returns the sorted object keys.
func (v Value) Keys() []string {
	if v.Kind() != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.n.object))
	for k := range v.n.object {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Same reports reference identity: both values point at the same node.
// Two absent values are Same.
func (v Value) Same(other Value) bool {
	return v.n == other.n
}

// Equal reports deep structural equality.
func (v Value) Equal(other Value) bool {
	if v.n == other.n {
		return true
	}
	if v.Kind() != other.Kind() {
		return false
	}
	switch v.n.kind {
	case KindNull:
		return true
	case KindScalar:
		return scalarEqual(v.n.scalar, other.n.scalar)
	case KindObject:
		if len(v.n.object) != len(other.n.object) {
			return false
		}
		for k, child := range v.n.object {
			peer, ok := other.n.object[k]
			if !ok || !child.Equal(peer) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.n.list) != len(other.n.list) {
			return false
		}
		for i := range v.n.list {
			if !v.n.list[i].Equal(other.n.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func scalarEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// String renders the value in a compact debugging form.
func (v Value) String() string {
	switch v.Kind() {
	case KindAbsent:
		return "<absent>"
	case KindNull:
		return "null"
	case KindScalar:
		return fmt.Sprintf("%v", v.n.scalar)
	case KindObject:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(v.n.object[k].String())
		}
		b.WriteByte('}')
		return b.String()
	default:
		var b strings.Builder
		b.WriteByte('[')
		for i, item := range v.n.list {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(item.String())
		}
		b.WriteByte(']')
		return b.String()
	}
}
