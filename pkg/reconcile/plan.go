package reconcile

import (
	"sort"

	"github.com/goliatone/go-formbind/pkg/fieldpath"
	"github.com/goliatone/go-formbind/pkg/form"
)

// Target is the part of a form the reconciler reads and writes.
type Target interface {
	form.State
	HiddenFields() map[string]form.FieldMeta
	FieldSubscriptions() map[string]form.FieldMeta
}

// Plan is the outcome of steps one to three of a reconciliation: which
// patterns were collected, what they expanded to, and which concrete paths
// may be overwritten.
type Plan struct {
	// Patterns lists hidden field paths followed by subscribed field paths,
	// each group sorted. A path present in both groups appears twice.
	Patterns []string
	// Paths holds the concrete paths the patterns expanded to, in order.
	Paths []string
	// Overwrite holds the paths with no field state or an inactive one.
	Overwrite []string
	// Active holds the paths excluded because the user is editing them.
	Active []string
}

// NewPlan collects patterns from target, expands them against the form's own
// values, and partitions the result by live field state. With dedupe set,
// repeated concrete paths are collapsed before field states are queried.
func NewPlan(target Target, dedupe bool) Plan {
	if target == nil {
		return Plan{}
	}

	plan := Plan{
		Patterns: collectPatterns(target),
	}
	plan.Paths = fieldpath.ExpandAll(plan.Patterns, target.Values())
	if dedupe {
		plan.Paths = fieldpath.Dedupe(plan.Paths)
	}

	for _, path := range plan.Paths {
		state, ok := target.FieldState(path)
		if ok && state.Active {
			plan.Active = append(plan.Active, path)
			continue
		}
		plan.Overwrite = append(plan.Overwrite, path)
	}
	return plan
}

func collectPatterns(target Target) []string {
	hidden := sortedKeys(target.HiddenFields())
	subscribed := sortedKeys(target.FieldSubscriptions())
	if len(hidden) == 0 && len(subscribed) == 0 {
		return nil
	}
	out := make([]string, 0, len(hidden)+len(subscribed))
	out = append(out, hidden...)
	return append(out, subscribed...)
}

func sortedKeys(m map[string]form.FieldMeta) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
