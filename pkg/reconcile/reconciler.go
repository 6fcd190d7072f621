package reconcile

import (
	"context"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/values"
)

const tracerName = "github.com/goliatone/go-formbind/pkg/reconcile"

// Reason explains why a reconciliation did not run.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonNoForm    Reason = "no-form"
	ReasonUnchanged Reason = "unchanged"
)

// Result reports what a reconciliation did.
type Result struct {
	Plan
	// Skipped is set when nothing ran; Reason says why.
	Skipped bool
	Reason  Reason
	// Written lists the paths passed to Change, in order.
	Written []string
	// Missing lists overwrite paths the external tree had no value for.
	Missing []string
}

// ValueFilter transforms an external value before it is written. Returning
// an absent value skips the path.
type ValueFilter func(path string, value values.Value) values.Value

// Observer receives every completed reconciliation.
type Observer interface {
	ObserveReconcile(result Result, err error)
}

// ObserverFunc adapts a function into an Observer.
type ObserverFunc func(Result, error)

// ObserveReconcile calls the underlying function.
func (fn ObserverFunc) ObserveReconcile(result Result, err error) {
	fn(result, err)
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithLogger injects a zap logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDedupe collapses concrete paths produced by overlapping patterns.
// Values written are identical either way; only the Change call count
// differs.
func WithDedupe(enabled bool) Option {
	return func(r *Reconciler) {
		r.dedupe = enabled
	}
}

// WithValueFilter registers a filter applied to external values.
func WithValueFilter(filter ValueFilter) Option {
	return func(r *Reconciler) {
		r.filter = filter
	}
}

// WithObserver registers an observer for completed runs.
func WithObserver(observer Observer) Option {
	return func(r *Reconciler) {
		r.observer = observer
	}
}

// WithTracerProvider overrides the OpenTelemetry provider. Defaults to the
// global provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(r *Reconciler) {
		if provider != nil {
			r.tracer = provider.Tracer(tracerName)
		}
	}
}

// Reconciler writes fresh external values into the fields of a form that
// the user is not editing. It remembers the last (target, external) pair it
// processed so hosts can call Reconcile on every render.
type Reconciler struct {
	logger   *zap.Logger
	tracer   trace.Tracer
	observer Observer
	filter   ValueFilter
	dedupe   bool

	mu         sync.Mutex
	seen       bool
	lastTarget Target
	lastValues values.Value
}

// New constructs a Reconciler applying any provided options.
func New(options ...Option) *Reconciler {
	r := &Reconciler{
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Reconcile runs Apply when target or external differ by identity from the
// last processed pair. A nil target is a no-op.
func (r *Reconciler) Reconcile(ctx context.Context, target Target, external values.Value) (Result, error) {
	if target == nil {
		return Result{Skipped: true, Reason: ReasonNoForm}, nil
	}

	r.mu.Lock()
	if r.seen && sameTarget(r.lastTarget, target) && r.lastValues.Same(external) {
		r.mu.Unlock()
		return Result{Skipped: true, Reason: ReasonUnchanged}, nil
	}
	r.seen = true
	r.lastTarget = target
	r.lastValues = external
	r.mu.Unlock()

	result, err := r.Apply(ctx, target, external)
	if err != nil {
		// Let the next trigger retry the same pair.
		r.mu.Lock()
		if sameTarget(r.lastTarget, target) && r.lastValues.Same(external) {
			r.seen = false
		}
		r.mu.Unlock()
	}
	return result, err
}

// Reset forgets the last processed pair.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = false
	r.lastTarget = nil
	r.lastValues = values.Value{}
}

// Plan computes the overwrite plan for target without writing anything.
func (r *Reconciler) Plan(target Target) Plan {
	return NewPlan(target, r.dedupe)
}

// Apply reconciles unconditionally: every overwrite path of the plan gets the
// external value at the same path, inside a single target.Batch. Paths the
// external tree lacks are skipped. Errors from the target propagate as-is.
func (r *Reconciler) Apply(ctx context.Context, target Target, external values.Value) (Result, error) {
	if target == nil {
		return Result{Skipped: true, Reason: ReasonNoForm}, nil
	}
	_, span := r.tracer.Start(ctx, "formbind.reconcile")
	defer span.End()

	result := Result{Plan: NewPlan(target, r.dedupe)}

	err := target.Batch(func() error {
		for _, path := range result.Overwrite {
			value, ok := external.Get(path)
			if ok && r.filter != nil {
				value = r.filter(path, value)
				ok = !value.IsAbsent()
			}
			if !ok {
				result.Missing = append(result.Missing, path)
				continue
			}
			if err := target.Change(path, value); err != nil {
				return err
			}
			result.Written = append(result.Written, path)
		}
		return nil
	})

	span.SetAttributes(
		attribute.Int("formbind.patterns", len(result.Patterns)),
		attribute.Int("formbind.paths", len(result.Paths)),
		attribute.Int("formbind.paths.active", len(result.Active)),
		attribute.Int("formbind.paths.written", len(result.Written)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	r.logger.Debug("form reconciled",
		zap.Int("patterns", len(result.Patterns)),
		zap.Strings("written", result.Written),
		zap.Strings("active", result.Active),
		zap.Int("missing", len(result.Missing)),
		zap.Error(err),
	)
	if r.observer != nil {
		r.observer.ObserveReconcile(result, err)
	}
	return result, err
}

func sameTarget(a, b Target) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
