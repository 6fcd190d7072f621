package model

import (
	"reflect"
	"strings"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
)

// Walk visits every leaf field with its dotted path pattern. Object fields
// with Nested children contribute their children; array fields contribute
// their Items template under an INDEX segment. The hidden flag is inherited
// by every descendant of a hidden field.
func Walk(fields []Field, fn func(pattern string, field Field, hidden bool)) {
	if fn == nil {
		return
	}
	walk(fields, "", false, fn)
}

func walk(fields []Field, prefix string, hidden bool, fn func(string, Field, bool)) {
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		path := fieldpath.Join(prefix, name)
		walkField(field, path, hidden || field.Hidden, fn)
	}
}

func walkField(field Field, path string, hidden bool, fn func(string, Field, bool)) {
	switch {
	case field.Type == FieldTypeObject && len(field.Nested) > 0:
		walk(field.Nested, path, hidden, fn)
	case field.Type == FieldTypeArray && field.Items != nil:
		item := *field.Items
		itemPath := fieldpath.Join(path, fieldpath.Index)
		itemHidden := hidden || item.Hidden
		if item.Type == FieldTypeObject && len(item.Nested) > 0 {
			walk(item.Nested, itemPath, itemHidden, fn)
			return
		}
		walkField(item, itemPath, itemHidden, fn)
	default:
		fn(path, field, hidden)
	}
}

// Patterns returns the path patterns of every visible leaf field, in
// declaration order.
func Patterns(fields []Field) []string {
	var out []string
	Walk(fields, func(pattern string, _ Field, hidden bool) {
		if !hidden {
			out = append(out, pattern)
		}
	})
	return out
}

// HiddenPatterns returns the path patterns of leaf fields declared hidden,
// directly or through a hidden ancestor.
func HiddenPatterns(fields []Field) []string {
	var out []string
	Walk(fields, func(pattern string, _ Field, hidden bool) {
		if hidden {
			out = append(out, pattern)
		}
	})
	return out
}

// Equal reports whether two definition sets are identical in content.
func Equal(a, b []Field) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Clone returns a deep copy of the definition set so callers can hand it to
// a form without sharing nested slices or maps.
func Clone(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, field := range fields {
		out[i] = cloneField(field)
	}
	return out
}

func cloneField(field Field) Field {
	clone := field
	clone.Nested = Clone(field.Nested)
	if field.Items != nil {
		item := cloneField(*field.Items)
		clone.Items = &item
	}
	if field.Metadata != nil {
		clone.Metadata = make(map[string]string, len(field.Metadata))
		for k, v := range field.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}
