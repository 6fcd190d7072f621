package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/form"
)

// Option customises the engine.
type Option func(*Engine)

// WithLogger injects a zap logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIDGenerator overrides how ids are minted for forms created without one.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithRegistry shares a registry between engines or exposes it to callers.
func WithRegistry(registry *form.Registry) Option {
	return func(e *Engine) {
		if registry != nil {
			e.registry = registry
		}
	}
}

// Engine is an in-memory form engine. Forms live in a form.Registry and are
// reference counted: creating an id that is already live hands back the
// existing form, and the form is deregistered once every holder removed it.
type Engine struct {
	registry *form.Registry
	logger   *zap.Logger
	newID    func() string

	mu   sync.Mutex
	refs map[string]int
}

// Ensure the implementation satisfies the public interface.
var _ form.Engine = (*Engine)(nil)

// New constructs an Engine applying any provided options.
func New(options ...Option) *Engine {
	e := &Engine{
		registry: form.NewRegistry(),
		logger:   zap.NewNop(),
		newID:    uuid.NewString,
		refs:     make(map[string]int),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// CreateForm builds and registers a form, or retrieves the live form with the
// same id. An empty id is replaced with a generated one. A retrieved form
// keeps its own state; cfg only seeds new forms.
func (e *Engine) CreateForm(cfg form.Config) (form.Form, error) {
	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		id = e.newID()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, err := e.registry.Get(id); err == nil && e.refs[id] > 0 {
		e.refs[id]++
		e.logger.Debug("form retrieved", zap.String("form_id", id), zap.Int("refs", e.refs[id]))
		return existing, nil
	}

	f := newForm(id, cfg)
	if err := e.registry.Register(f); err != nil {
		return nil, fmt.Errorf("memory: create form: %w", err)
	}
	e.refs[id] = 1
	e.logger.Debug("form created",
		zap.String("form_id", id),
		zap.Int("fields", len(cfg.Fields)),
	)
	return f, nil
}

// RemoveForm releases one reference to the form and deregisters it when none
// remain. Unknown ids are ignored.
func (e *Engine) RemoveForm(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	refs, ok := e.refs[id]
	if !ok {
		return
	}
	if refs > 1 {
		e.refs[id] = refs - 1
		return
	}
	delete(e.refs, id)
	if e.registry.Remove(id) {
		e.logger.Debug("form removed", zap.String("form_id", id))
	}
}

// Refs reports how many holders share the form with the given id.
func (e *Engine) Refs(id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refs[id]
}

// Get returns the concrete form registered under id.
func (e *Engine) Get(id string) (*Form, bool) {
	f, err := e.registry.Get(id)
	if err != nil {
		return nil, false
	}
	concrete, ok := f.(*Form)
	return concrete, ok
}

// IDs lists the live form ids in sorted order.
func (e *Engine) IDs() []string {
	return e.registry.List()
}

// Len reports how many forms are live.
func (e *Engine) Len() int {
	return e.registry.Len()
}
