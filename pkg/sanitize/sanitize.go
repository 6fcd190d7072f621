package sanitize

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formbind/pkg/reconcile"
	"github.com/goliatone/go-formbind/pkg/values"
)

const (
	PolicyStrict = "strict"
	PolicyUGC    = "ugc"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
	ugcOnce      sync.Once
	ugcPolicy    *bluemonday.Policy
)

// Policy returns the shared bluemonday policy with the given name. "strict"
// strips all markup; "ugc" keeps the markup allowed in user generated
// content.
func Policy(name string) (*bluemonday.Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyStrict:
		strictOnce.Do(func() {
			strictPolicy = bluemonday.StrictPolicy()
		})
		return strictPolicy, nil
	case PolicyUGC:
		ugcOnce.Do(func() {
			ugcPolicy = bluemonday.UGCPolicy()
		})
		return ugcPolicy, nil
	default:
		return nil, fmt.Errorf("sanitize: unknown policy %q", name)
	}
}

// Filter returns a reconcile.ValueFilter that runs every string scalar of an
// external value through policy. Other scalars pass through unchanged.
func Filter(policy *bluemonday.Policy) reconcile.ValueFilter {
	if policy == nil {
		policy, _ = Policy(PolicyStrict)
	}
	return func(_ string, value values.Value) values.Value {
		return Value(policy, value)
	}
}

// Text runs s through policy and returns the result without the entity
// escaping bluemonday applies to text, so plain content such as
// `Tom & Jerry's` is kept as typed. When unescaping would turn encoded
// markup into live markup the escaped output is returned instead.
func Text(policy *bluemonday.Policy, s string) string {
	escaped := policy.Sanitize(s)
	plain := html.UnescapeString(escaped)
	if plain == s {
		return s
	}
	if html.UnescapeString(policy.Sanitize(plain)) != plain {
		return escaped
	}
	return plain
}

// Value sanitizes every string scalar inside v. Subtrees without strings
// that change are returned as-is.
func Value(policy *bluemonday.Policy, v values.Value) values.Value {
	switch v.Kind() {
	case values.KindScalar:
		s, ok := v.Interface().(string)
		if !ok {
			return v
		}
		cleaned := Text(policy, s)
		if cleaned == s {
			return v
		}
		return values.String(cleaned)
	case values.KindObject:
		keys := v.Keys()
		changed := false
		fields := make(map[string]values.Value, len(keys))
		for _, key := range keys {
			child := v.Key(key)
			next := Value(policy, child)
			if !next.Same(child) {
				changed = true
			}
			fields[key] = next
		}
		if !changed {
			return v
		}
		return values.Object(fields)
	case values.KindList:
		changed := false
		items := make([]values.Value, v.Len())
		for i := range items {
			child := v.Index(i)
			items[i] = Value(policy, child)
			if !items[i].Same(child) {
				changed = true
			}
		}
		if !changed {
			return v
		}
		return values.List(items...)
	default:
		return v
	}
}
