package formbind

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/binder"
	"github.com/goliatone/go-formbind/pkg/config"
	"github.com/goliatone/go-formbind/pkg/engines/memory"
	"github.com/goliatone/go-formbind/pkg/form"
	"github.com/goliatone/go-formbind/pkg/metrics"
	"github.com/goliatone/go-formbind/pkg/reconcile"
	"github.com/goliatone/go-formbind/pkg/sanitize"
	"github.com/goliatone/go-formbind/pkg/values"
)

// Config aliases binder.Config so callers only import the root package for
// the common path.
type Config = binder.Config

// Option customises the controller.
type Option func(*Controller)

// WithEngine injects the form engine. Defaults to an in-memory engine.
func WithEngine(engine form.Engine) Option {
	return func(c *Controller) {
		c.engine = engine
	}
}

// WithLogger injects a zap logger shared by the binder and reconciler.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMode overrides the process-wide deployment mode.
func WithMode(mode config.Mode) Option {
	return func(c *Controller) {
		c.mode = mode
	}
}

// WithRenderFunc registers the host re-render callback.
func WithRenderFunc(fn binder.RenderFunc) Option {
	return func(c *Controller) {
		c.render = fn
	}
}

// WithReconcileOptions forwards options to the reconciler.
func WithReconcileOptions(options ...reconcile.Option) Option {
	return func(c *Controller) {
		c.reconcileOptions = append(c.reconcileOptions, options...)
	}
}

// WithMetrics records every reconciliation on registry through a
// metrics.Observer.
func WithMetrics(registry prometheus.Registerer) Option {
	return func(c *Controller) {
		if registry == nil {
			return
		}
		observer := metrics.NewObserver(metrics.WithRegistry(registry))
		c.reconcileOptions = append(c.reconcileOptions, reconcile.WithObserver(observer))
	}
}

// WithConfig applies a resolved configuration: mode, dedupe, metrics on the
// default registry and the sanitizing value filter.
func WithConfig(cfg *config.Config) Option {
	return func(c *Controller) {
		if cfg == nil {
			return
		}
		c.mode = cfg.Mode
		c.reconcileOptions = append(c.reconcileOptions, reconcile.WithDedupe(cfg.Reconcile.Dedupe))
		if cfg.Reconcile.Metrics {
			c.reconcileOptions = append(c.reconcileOptions, reconcile.WithObserver(metrics.Shared()))
		}
		if !cfg.Reconcile.Sanitize {
			return
		}
		policy, err := sanitize.Policy(cfg.Reconcile.SanitizePolicy)
		if err != nil {
			c.initialiseErr = err
			return
		}
		c.reconcileOptions = append(c.reconcileOptions, reconcile.WithValueFilter(sanitize.Filter(policy)))
	}
}

// Result is what one Render produced.
type Result struct {
	// Values is what the host should display.
	Values values.Value
	// Form is the live form, nil in static mode or without initial values.
	Form form.Form
	// Reconcile reports the reconciliation that ran after binding.
	Reconcile reconcile.Result
}

// Controller plays the part of a mounted component: every Render binds the
// form and then reconciles it against the latest external values. Both steps
// only do work when one of their inputs changed identity.
type Controller struct {
	engine           form.Engine
	logger           *zap.Logger
	mode             config.Mode
	render           binder.RenderFunc
	reconcileOptions []reconcile.Option
	initialiseErr    error

	mu         sync.Mutex
	binder     *binder.Binder
	reconciler *reconcile.Reconciler

	// Value notifications raised while a Render holds mu are queued and
	// handed to the render func once it is released.
	queueMu    sync.Mutex
	depth      int
	queued     values.Value
	hasPending bool
}

// New constructs a Controller applying any provided options.
func New(options ...Option) *Controller {
	c := &Controller{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.engine == nil {
		c.engine = memory.New(memory.WithLogger(c.logger))
	}
	var onChange binder.RenderFunc
	if c.render != nil {
		onChange = c.notify
	}
	c.binder = binder.New(c.engine,
		binder.WithLogger(c.logger),
		binder.WithMode(c.mode),
		binder.WithRenderFunc(onChange),
	)
	c.reconciler = reconcile.New(append([]reconcile.Option{reconcile.WithLogger(c.logger)}, c.reconcileOptions...)...)
	return c
}

// Render binds cfg and reconciles the live form with external. The render
// func runs after Render has released its lock, so it may call Render again.
func (c *Controller) Render(ctx context.Context, cfg Config, external values.Value) (Result, error) {
	if c.initialiseErr != nil {
		return Result{}, fmt.Errorf("formbind: %w", c.initialiseErr)
	}
	result, err := c.renderLocked(ctx, cfg, external)
	c.deliver()
	return result, err
}

func (c *Controller) renderLocked(ctx context.Context, cfg Config, external values.Value) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queueMu.Lock()
	c.depth++
	c.queueMu.Unlock()

	current, handle, err := c.binder.Bind(cfg)
	if err != nil {
		return Result{Values: current}, err
	}
	result := Result{Values: current, Form: handle}

	var target reconcile.Target
	if handle != nil {
		target = handle
	}
	result.Reconcile, err = c.reconciler.Reconcile(ctx, target, external)
	if err != nil {
		return result, fmt.Errorf("formbind: reconcile %q: %w", cfg.ID, err)
	}
	if handle != nil {
		result.Values = c.binder.Values()
	}
	return result, nil
}

// notify receives binder value notifications. Inside a Render only the
// latest value is kept.
func (c *Controller) notify(v values.Value) {
	c.queueMu.Lock()
	if c.depth > 0 {
		c.queued = v
		c.hasPending = true
		c.queueMu.Unlock()
		return
	}
	c.queueMu.Unlock()
	c.render(v)
}

func (c *Controller) deliver() {
	c.queueMu.Lock()
	c.depth--
	v, ok := c.queued, c.hasPending
	c.queued, c.hasPending = values.Value{}, false
	c.queueMu.Unlock()
	if ok {
		c.render(v)
	}
}

// Form returns the live form, or nil.
func (c *Controller) Form() form.Form {
	return c.binder.Form()
}

// Close releases the live form. Safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconciler.Reset()
	return c.binder.Close()
}
