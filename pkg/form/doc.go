// Package form declares the contracts between the binder, the reconciler and
// a form engine. Engines own forms; callers hold Form handles for as long as
// a binding is mounted and talk to them through these interfaces only. The
// in-memory reference engine lives in pkg/engines/memory.
package form
