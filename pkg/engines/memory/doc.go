// Package memory provides an in-memory form engine. It is the reference
// collaborator for the binder and reconciler: forms keep an immutable values
// tree, per-path field state with a single active field, field
// subscriptions derived from model definitions, and listeners that are
// notified once per change or once per Batch.
package memory
