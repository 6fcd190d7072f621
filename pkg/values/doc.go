// Package values implements the tagged values tree shared by forms, the
// reconciler and callers supplying external content. A Value is one of
// absent, null, scalar, object or list. Trees are immutable: Set and Delete
// return new trees that share untouched subtrees with the original, which
// lets hosts detect changes through reference identity (Same) instead of
// deep comparison.
//
// Paths are dot-delimited; numeric segments index into lists:
//
//	doc := values.FromAny(map[string]any{
//	    "authors": []any{map[string]any{"name": "Ada"}},
//	})
//	name, ok := doc.Get("authors.0.name") // "Ada", true
//	_, ok = doc.Get("authors.3.name")     // false, never panics
package values
