// Package fieldpath works with dotted field paths and path patterns. A
// pattern may use the INDEX placeholder where a list index belongs:
//
//	authors.INDEX.name
//	authors.INDEX.books.INDEX.title
//
// Expand turns a pattern into the concrete paths that exist in a values
// tree right now. Only indices present in the supplied tree are produced, so
// expansion is bounded by the current list lengths.
package fieldpath
