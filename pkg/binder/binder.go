package binder

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/config"
	"github.com/goliatone/go-formbind/pkg/form"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/values"
)

// Config is what a mounted component passes on every render.
type Config struct {
	ID           string
	Initial      values.Value
	Fields       []model.Field
	Label        string
	HiddenFields map[string]form.FieldMeta
}

// RenderFunc stores the latest values and triggers a host re-render.
type RenderFunc func(values.Value)

// Option customises a Binder.
type Option func(*Binder)

// WithLogger injects a zap logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMode overrides the process-wide deployment mode.
func WithMode(mode config.Mode) Option {
	return func(b *Binder) {
		if mode != "" {
			b.mode = mode
		}
	}
}

// WithRenderFunc registers the callback invoked after every value change of
// the bound form.
func WithRenderFunc(fn RenderFunc) Option {
	return func(b *Binder) {
		b.render = fn
	}
}

// Binder ties one live form registration to a mounted component. It holds a
// non-owning reference; the engine owns the form.
type Binder struct {
	engine form.Engine
	logger *zap.Logger
	mode   config.Mode
	render RenderFunc

	mu          sync.Mutex
	form        form.Form
	key         string
	initial     values.Value
	fields      []model.Field
	label       string
	unsubscribe func()

	// generation invalidates listeners of torn down registrations.
	generation atomic.Uint64

	stateMu sync.Mutex
	current values.Value
}

// New constructs a Binder over engine applying any provided options. The
// mode defaults to config.ProcessMode().
func New(engine form.Engine, options ...Option) *Binder {
	b := &Binder{
		engine: engine,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(b)
	}
	if b.mode == "" {
		b.mode = config.ProcessMode()
		if err := config.ProcessModeError(); err != nil {
			b.logger.Warn("invalid deployment mode", zap.Error(err))
		}
	}
	return b
}

// Bind reconciles the binding with cfg and returns the current values and the
// live form. In static mode, or when cfg carries no initial values, no form
// exists: the initial values come back unchanged with a nil handle.
//
// A different ID or a different Initial reference replaces the registration.
// Field definition and label changes are pushed into the live form after the
// binder lock is released, so subscribers notified by them may call Bind.
func (b *Binder) Bind(cfg Config) (values.Value, form.Form, error) {
	b.mu.Lock()

	if b.mode.Static() || cfg.Initial.IsEmpty() {
		b.teardownLocked()
		b.setCurrent(cfg.Initial)
		b.mu.Unlock()
		return cfg.Initial, nil, nil
	}

	if b.form != nil && (b.key != cfg.ID || !b.initial.Same(cfg.Initial)) {
		b.teardownLocked()
	}
	if b.form == nil {
		if err := b.createLocked(cfg); err != nil {
			b.mu.Unlock()
			return cfg.Initial, nil, err
		}
	}

	f := b.form
	var fields []model.Field
	pushFields := !model.Equal(b.fields, cfg.Fields)
	if pushFields {
		b.fields = model.Clone(cfg.Fields)
		fields = model.Clone(cfg.Fields)
	}
	pushLabel := b.label != cfg.Label
	if pushLabel {
		b.label = cfg.Label
	}
	b.mu.Unlock()

	if pushFields {
		f.UpdateFields(fields)
	}
	if pushLabel {
		f.SetLabel(cfg.Label)
	}
	return b.Values(), f, nil
}

// Form returns the live form, or nil when none is bound.
func (b *Binder) Form() form.Form {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.form
}

// Values returns the latest values snapshot.
func (b *Binder) Values() values.Value {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.current
}

// Close unsubscribes from and deregisters the live form. It is safe to call
// more than once; a later Bind mounts again.
func (b *Binder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.teardownLocked()
	return nil
}

func (b *Binder) createLocked(cfg Config) error {
	f, err := b.engine.CreateForm(form.Config{
		ID:            cfg.ID,
		Label:         cfg.Label,
		InitialValues: cfg.Initial,
		Fields:        cfg.Fields,
		HiddenFields:  cfg.HiddenFields,
	})
	if err != nil {
		return fmt.Errorf("binder: create form %q: %w", cfg.ID, err)
	}
	if f == nil {
		return fmt.Errorf("binder: engine returned no form for %q", cfg.ID)
	}

	gen := b.generation.Add(1)
	b.form = f
	b.key = cfg.ID
	b.initial = cfg.Initial
	// A retrieved form keeps its own definitions; track what it holds so the
	// sync step pushes cfg when they differ.
	b.fields = f.Fields()
	b.label = f.Label()
	b.setCurrent(f.Values())
	b.unsubscribe = f.Subscribe(b.listener(gen), form.Subscription{Values: true})

	b.logger.Debug("form bound", zap.String("form_id", f.ID()), zap.String("key", cfg.ID))
	return nil
}

func (b *Binder) listener(gen uint64) form.Listener {
	return func(snapshot form.Snapshot) {
		if b.generation.Load() != gen {
			return
		}
		b.setCurrent(snapshot.Values)
		if b.render != nil {
			b.render(snapshot.Values)
		}
	}
}

// teardownLocked unsubscribes before deregistering. The deregistration is
// deferred so it also runs when unsubscribe panics.
func (b *Binder) teardownLocked() {
	if b.form == nil {
		return
	}
	b.generation.Add(1)

	id := b.form.ID()
	unsubscribe := b.unsubscribe
	b.form = nil
	b.unsubscribe = nil
	b.key = ""
	b.initial = values.Value{}
	b.fields = nil
	b.label = ""

	defer func() {
		b.engine.RemoveForm(id)
		b.logger.Debug("form unbound", zap.String("form_id", id))
	}()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (b *Binder) setCurrent(v values.Value) {
	b.stateMu.Lock()
	b.current = v
	b.stateMu.Unlock()
}
