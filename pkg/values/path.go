package values

import (
	"fmt"
	"strconv"
	"strings"
)

// Get resolves a dotted path ("authors.0.name") against v. Missing
// intermediate segments, out of range indices and traversal through scalars
// all report false rather than failing. The empty path addresses v itself.
func (v Value) Get(path string) (Value, bool) {
	return v.Lookup(splitPath(path))
}

// Lookup resolves pre-split path segments against v.
func (v Value) Lookup(segments []string) (Value, bool) {
	current := v
	for _, segment := range segments {
		switch current.Kind() {
		case KindObject:
			next, ok := current.n.object[segment]
			if !ok {
				return Value{}, false
			}
			current = next
		case KindList:
			idx, ok := parseIndex(segment)
			if !ok || idx >= len(current.n.list) {
				return Value{}, false
			}
			current = current.n.list[idx]
		default:
			return Value{}, false
		}
	}
	if current.IsAbsent() {
		return Value{}, false
	}
	return current, true
}

// Set returns a copy of v with value written at path. Intermediate objects
// and lists are created as needed: a numeric next segment creates a list,
// anything else an object. Lists grow with null padding. The receiver is
// never modified; untouched subtrees are shared with the result.
func (v Value) Set(path string, value Value) (Value, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return value, nil
	}
	out, err := setIn(v, segments, value)
	if err != nil {
		return v, fmt.Errorf("values: set %q: %w", path, err)
	}
	return out, nil
}

// MustSet is Set for fixtures; it panics on error.
func (v Value) MustSet(path string, value Value) Value {
	out, err := v.Set(path, value)
	if err != nil {
		panic(err)
	}
	return out
}

// Delete returns a copy of v without the member at path. List entries are
// replaced with null so sibling indices stay stable. Missing paths return v
// unchanged.
func (v Value) Delete(path string) Value {
	segments := splitPath(path)
	if len(segments) == 0 {
		return Value{}
	}
	if _, ok := v.Lookup(segments); !ok {
		return v
	}
	return deleteIn(v, segments)
}

// Flatten returns every leaf (scalar, null or empty container) keyed by its
// dotted path.
func (v Value) Flatten() map[string]Value {
	out := make(map[string]Value)
	flattenInto(out, "", v)
	return out
}

func flattenInto(out map[string]Value, prefix string, v Value) {
	switch v.Kind() {
	case KindAbsent:
		return
	case KindObject:
		if len(v.n.object) == 0 && prefix != "" {
			out[prefix] = v
			return
		}
		for _, key := range v.Keys() {
			flattenInto(out, joinPath(prefix, key), v.n.object[key])
		}
	case KindList:
		if len(v.n.list) == 0 && prefix != "" {
			out[prefix] = v
			return
		}
		for i, item := range v.n.list {
			flattenInto(out, joinPath(prefix, strconv.Itoa(i)), item)
		}
	default:
		if prefix != "" {
			out[prefix] = v
		}
	}
}

func setIn(current Value, segments []string, value Value) (Value, error) {
	if len(segments) == 0 {
		return value, nil
	}
	segment := segments[0]

	if k := current.Kind(); k == KindAbsent || k == KindNull {
		if _, numeric := parseIndex(segment); numeric {
			current = Value{n: &node{kind: KindList}}
		} else {
			current = Value{n: &node{kind: KindObject, object: map[string]Value{}}}
		}
	}

	switch current.n.kind {
	case KindObject:
		child, err := setIn(current.n.object[segment], segments[1:], value)
		if err != nil {
			return Value{}, err
		}
		fields := make(map[string]Value, len(current.n.object)+1)
		for k, v := range current.n.object {
			fields[k] = v
		}
		fields[segment] = child
		return Value{n: &node{kind: KindObject, object: fields}}, nil

	case KindList:
		idx, ok := parseIndex(segment)
		if !ok {
			return Value{}, fmt.Errorf("expected numeric segment, got %q", segment)
		}
		size := len(current.n.list)
		if idx >= size {
			size = idx + 1
		}
		items := make([]Value, size)
		copy(items, current.n.list)
		for i := len(current.n.list); i < size; i++ {
			items[i] = Null()
		}
		child, err := setIn(items[idx], segments[1:], value)
		if err != nil {
			return Value{}, err
		}
		items[idx] = child
		return Value{n: &node{kind: KindList, list: items}}, nil

	default:
		return Value{}, fmt.Errorf("%w (segment %q)", ErrNotContainer, segment)
	}
}

func deleteIn(current Value, segments []string) Value {
	segment := segments[0]
	last := len(segments) == 1
	switch current.Kind() {
	case KindObject:
		fields := make(map[string]Value, len(current.n.object))
		for k, v := range current.n.object {
			fields[k] = v
		}
		if last {
			delete(fields, segment)
		} else {
			fields[segment] = deleteIn(fields[segment], segments[1:])
		}
		return Value{n: &node{kind: KindObject, object: fields}}
	case KindList:
		idx, _ := parseIndex(segment)
		items := append([]Value(nil), current.n.list...)
		if last {
			items[idx] = Null()
		} else {
			items[idx] = deleteIn(items[idx], segments[1:])
		}
		return Value{n: &node{kind: KindList, list: items}}
	default:
		return current
	}
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

// parseIndex accepts plain non-negative decimal integers only.
func parseIndex(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	for i := 0; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return idx, true
}
