// Package metrics exports reconciliation outcomes to Prometheus through a
// reconcile.Observer.
package metrics
