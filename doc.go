// Package formbind binds forms owned by an engine to a host render loop and
// keeps untouched fields in step with freshly fetched content.
//
// A Controller stands in for a mounted component. On every render it binds
// the form (create, recreate, or sync fields and label) and reconciles it:
// every hidden or subscribed field path, with INDEX placeholders expanded
// against the form's own lists, receives the external value unless the user
// is editing that field. All writes land in one batch, so subscribers see a
// single update.
package formbind
