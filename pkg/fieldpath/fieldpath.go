package fieldpath

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formbind/pkg/values"
)

// Index is the placeholder segment standing for "every list index currently
// present at this position".
const Index = "INDEX"

// Separator delimits path segments.
const Separator = "."

// Split breaks a path into segments. The empty path has no segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Join assembles segments into a dotted path, skipping empty segments.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		parts = append(parts, segment)
	}
	return strings.Join(parts, Separator)
}

// HasIndex reports whether pattern carries at least one INDEX segment.
func HasIndex(pattern string) bool {
	return firstIndex(Split(pattern)) >= 0
}

// Expand resolves a path pattern into concrete paths against tree. A pattern
// without INDEX segments is returned as-is. Otherwise the first INDEX segment
// splits the pattern into a list prefix and a suffix; the prefix is looked up
// in tree and, when it holds a list, every index 0..len-1 is substituted
// and the result expanded again, so nested lists are handled. A prefix that
// is missing or does not hold a list contributes no paths.
func Expand(pattern string, tree values.Value) []string {
	return expand(Split(pattern), tree, nil)
}

// ExpandAll expands every pattern in order. Duplicate concrete paths coming
// from overlapping patterns are kept.
func ExpandAll(patterns []string, tree values.Value) []string {
	var out []string
	for _, pattern := range patterns {
		out = expand(Split(pattern), tree, out)
	}
	return out
}

// Dedupe drops repeated paths, keeping the first occurrence.
func Dedupe(paths []string) []string {
	if len(paths) == 0 {
		return paths
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}

func expand(segments []string, tree values.Value, out []string) []string {
	if len(segments) == 0 {
		return out
	}
	at := firstIndex(segments)
	if at < 0 {
		return append(out, strings.Join(segments, Separator))
	}

	list, ok := tree.Lookup(segments[:at])
	if !ok || !list.IsList() {
		return out
	}

	for i := 0; i < list.Len(); i++ {
		concrete := make([]string, len(segments))
		copy(concrete, segments)
		concrete[at] = strconv.Itoa(i)
		out = expand(concrete, tree, out)
	}
	return out
}

func firstIndex(segments []string) int {
	for i, segment := range segments {
		if segment == Index {
			return i
		}
	}
	return -1
}
