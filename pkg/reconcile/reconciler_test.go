package reconcile_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/engines/memory"
	"github.com/goliatone/go-formbind/pkg/form"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/reconcile"
	"github.com/goliatone/go-formbind/pkg/values"
)

func createForm(t *testing.T, fields []model.Field, hidden map[string]form.FieldMeta, initial map[string]any) *memory.Form {
	t.Helper()
	handle, err := memory.New().CreateForm(form.Config{
		ID:            "post",
		InitialValues: values.FromAny(initial),
		Fields:        fields,
		HiddenFields:  hidden,
	})
	if err != nil {
		t.Fatalf("create form: %v", err)
	}
	return handle.(*memory.Form)
}

func titleForm(t *testing.T) *memory.Form {
	return createForm(t,
		[]model.Field{{Name: "title", Type: model.FieldTypeString}},
		nil,
		map[string]any{"title": "old"},
	)
}

func valueAt(t *testing.T, f form.State, path string) any {
	t.Helper()
	v, ok := f.Values().Get(path)
	if !ok {
		t.Fatalf("expected value at %q", path)
	}
	return v.Any()
}

func TestReconcileOverwritesInactiveField(t *testing.T) {
	f := titleForm(t)
	external := values.FromAny(map[string]any{"title": "new"})

	result, err := reconcile.New().Reconcile(context.Background(), f, external)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := valueAt(t, f, "title"); got != "new" {
		t.Fatalf("expected title overwritten, got %v", got)
	}
	if diff := cmp.Diff([]string{"title"}, result.Written); diff != "" {
		t.Fatalf("written mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileOverwritesRegisteredButInactiveField(t *testing.T) {
	f := titleForm(t)
	f.Focus("title")
	f.Blur("title")

	_, err := reconcile.New().Reconcile(context.Background(), f, values.FromAny(map[string]any{"title": "new"}))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := valueAt(t, f, "title"); got != "new" {
		t.Fatalf("expected title overwritten, got %v", got)
	}
}

func TestReconcileLeavesActiveFieldUntouched(t *testing.T) {
	f := titleForm(t)
	f.Focus("title")

	result, err := reconcile.New().Reconcile(context.Background(), f, values.FromAny(map[string]any{"title": "new"}))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := valueAt(t, f, "title"); got != "old" {
		t.Fatalf("expected active title untouched, got %v", got)
	}
	if diff := cmp.Diff([]string{"title"}, result.Active); diff != "" {
		t.Fatalf("active mismatch (-want +got):\n%s", diff)
	}
	if len(result.Written) != 0 {
		t.Fatalf("expected no writes, got %v", result.Written)
	}
}

func TestReconcileExpandsListPatternsAgainstFormValues(t *testing.T) {
	f := createForm(t,
		[]model.Field{{
			Name: "authors",
			Type: model.FieldTypeArray,
			Items: &model.Field{Type: model.FieldTypeObject, Nested: []model.Field{
				{Name: "name"},
				{Name: "books", Type: model.FieldTypeArray, Items: &model.Field{
					Type: model.FieldTypeObject, Nested: []model.Field{{Name: "title"}},
				}},
			}},
		}},
		nil,
		map[string]any{"authors": []any{
			map[string]any{"name": "a0", "books": []any{map[string]any{"title": "b0"}, map[string]any{"title": "b1"}}},
			map[string]any{"name": "a1"},
		}},
	)
	f.Focus("authors.0.books.1.title")

	// The external tree has a third author; expansion is bounded by the form.
	external := values.FromAny(map[string]any{"authors": []any{
		map[string]any{"name": "A0", "books": []any{map[string]any{"title": "B0"}, map[string]any{"title": "B1"}}},
		map[string]any{"name": "A1"},
		map[string]any{"name": "A2"},
	}})

	result, err := reconcile.New().Reconcile(context.Background(), f, external)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	wantPaths := []string{
		"authors.0.books.0.title",
		"authors.0.books.1.title",
		"authors.0.name",
		"authors.1.name",
	}
	if diff := cmp.Diff(wantPaths, result.Paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	want := map[string]any{"authors": []any{
		map[string]any{"name": "A0", "books": []any{map[string]any{"title": "B0"}, map[string]any{"title": "b1"}}},
		map[string]any{"name": "A1"},
	}}
	if diff := cmp.Diff(want, f.Values().Any()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileEmptyListContributesNothing(t *testing.T) {
	f := createForm(t,
		[]model.Field{{Name: "authors", Type: model.FieldTypeArray, Items: &model.Field{
			Type: model.FieldTypeObject, Nested: []model.Field{{Name: "name"}},
		}}},
		nil,
		map[string]any{"authors": []any{}},
	)
	result, err := reconcile.New().Reconcile(context.Background(), f,
		values.FromAny(map[string]any{"authors": []any{map[string]any{"name": "x"}}}))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(result.Paths) != 0 {
		t.Fatalf("expected no paths, got %v", result.Paths)
	}
	if diff := cmp.Diff(map[string]any{"authors": []any{}}, f.Values().Any()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileIncludesHiddenFields(t *testing.T) {
	f := createForm(t,
		[]model.Field{{Name: "title"}},
		map[string]form.FieldMeta{"version": {}},
		map[string]any{"title": "t", "version": 1},
	)
	result, err := reconcile.New().Reconcile(context.Background(), f,
		values.FromAny(map[string]any{"title": "t2", "version": 2}))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if diff := cmp.Diff([]string{"version", "title"}, result.Patterns); diff != "" {
		t.Fatalf("patterns mismatch (-want +got):\n%s", diff)
	}
	if got := valueAt(t, f, "version"); got != 2 {
		t.Fatalf("expected hidden version overwritten, got %v", got)
	}
}

func TestReconcileSkipsMissingExternalValues(t *testing.T) {
	f := createForm(t,
		[]model.Field{{Name: "title"}, {Name: "summary"}},
		nil,
		map[string]any{"title": "t", "summary": "keep"},
	)
	result, err := reconcile.New().Reconcile(context.Background(), f,
		values.FromAny(map[string]any{"title": "t2"}))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := valueAt(t, f, "summary"); got != "keep" {
		t.Fatalf("expected summary kept, got %v", got)
	}
	if diff := cmp.Diff([]string{"summary"}, result.Missing); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileNotifiesOnce(t *testing.T) {
	f := createForm(t,
		[]model.Field{{Name: "title"}, {Name: "summary"}, {Name: "body"}},
		nil,
		map[string]any{"title": "a", "summary": "b", "body": "c"},
	)
	var snapshots []form.Snapshot
	f.Subscribe(func(s form.Snapshot) { snapshots = append(snapshots, s) }, form.Subscription{Values: true})

	_, err := reconcile.New().Reconcile(context.Background(), f,
		values.FromAny(map[string]any{"title": "A", "summary": "B", "body": "C"}))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(snapshots))
	}
	want := map[string]any{"title": "A", "summary": "B", "body": "C"}
	if diff := cmp.Diff(want, snapshots[0].Values.Any()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileWithoutFormIsNoop(t *testing.T) {
	result, err := reconcile.New().Reconcile(context.Background(), nil, values.FromAny(map[string]any{"title": "x"}))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !result.Skipped || result.Reason != reconcile.ReasonNoForm {
		t.Fatalf("expected no-form skip, got %+v", result)
	}
}

func TestReconcileSkipsUnchangedInputs(t *testing.T) {
	f := titleForm(t)
	r := reconcile.New()
	external := values.FromAny(map[string]any{"title": "new"})

	if _, err := r.Reconcile(context.Background(), f, external); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	// A user edit after the first run must survive re-renders with the same
	// external tree.
	if err := f.Change("title", values.String("typed")); err != nil {
		t.Fatalf("change: %v", err)
	}
	result, err := r.Reconcile(context.Background(), f, external)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !result.Skipped || result.Reason != reconcile.ReasonUnchanged {
		t.Fatalf("expected unchanged skip, got %+v", result)
	}
	if got := valueAt(t, f, "title"); got != "typed" {
		t.Fatalf("expected edit kept, got %v", got)
	}

	// An equal but distinct tree is a new input.
	fresh := values.FromAny(map[string]any{"title": "new"})
	result, err = r.Reconcile(context.Background(), f, fresh)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Skipped {
		t.Fatalf("expected rerun for new external reference")
	}
	if got := valueAt(t, f, "title"); got != "new" {
		t.Fatalf("expected overwrite, got %v", got)
	}

	r.Reset()
	result, _ = r.Reconcile(context.Background(), f, fresh)
	if result.Skipped {
		t.Fatalf("expected rerun after Reset")
	}
}

func TestReconcileValueFilter(t *testing.T) {
	f := createForm(t,
		[]model.Field{{Name: "title"}, {Name: "secret"}},
		nil,
		map[string]any{"title": "a", "secret": "s"},
	)
	filter := func(path string, v values.Value) values.Value {
		if path == "secret" {
			return values.Value{}
		}
		return values.String(v.Interface().(string) + "!")
	}
	result, err := reconcile.New(reconcile.WithValueFilter(filter)).Reconcile(context.Background(), f,
		values.FromAny(map[string]any{"title": "b", "secret": "leak"}))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"title": "b!", "secret": "s"}, f.Values().Any()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"secret"}, result.Missing); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileObserver(t *testing.T) {
	f := titleForm(t)
	var observed []reconcile.Result
	r := reconcile.New(reconcile.WithObserver(reconcile.ObserverFunc(func(res reconcile.Result, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		observed = append(observed, res)
	})))
	if _, err := r.Reconcile(context.Background(), f, values.FromAny(map[string]any{"title": "x"})); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(observed) != 1 || len(observed[0].Written) != 1 {
		t.Fatalf("unexpected observations: %+v", observed)
	}
}
