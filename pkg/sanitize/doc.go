// Package sanitize cleans markup out of external values before the
// reconciler writes them into a form.
package sanitize
