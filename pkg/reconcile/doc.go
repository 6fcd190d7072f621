// Package reconcile overwrites the inactive fields of a live form with
// freshly fetched external values.
//
// A run collects every hidden field path and every subscribed field path of
// the form, expands INDEX patterns against the form's own values, drops the
// paths whose field state reports active, and writes the external value at
// each remaining path inside one batch. Fields the user is editing are never
// touched, and subscribers see a single notification per run.
//
//	r := reconcile.New(reconcile.WithLogger(logger))
//	result, err := r.Reconcile(ctx, liveForm, fetched)
//
// Reconcile skips work when called again with the same form and the same
// external tree (by identity), so it can be invoked on every render.
package reconcile
