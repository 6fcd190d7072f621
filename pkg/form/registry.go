package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrFormExists is returned when registering an id that is already live.
	ErrFormExists = errors.New("form: form already registered")
	// ErrFormNotFound is returned when looking up an unknown id.
	ErrFormNotFound = errors.New("form: form not found")
)

// Registry stores live forms by id, providing discovery and duplication
// safeguards. Engines embed or wrap it.
type Registry struct {
	mu    sync.RWMutex
	forms map[string]Form
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		forms: make(map[string]Form),
	}
}

// Register adds a form by its ID(). Duplicate ids return ErrFormExists.
func (r *Registry) Register(f Form) error {
	if f == nil {
		return fmt.Errorf("form: form is required")
	}
	id := strings.TrimSpace(f.ID())
	if id == "" {
		return fmt.Errorf("form: form id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.forms[id]; exists {
		return fmt.Errorf("%w: %q", ErrFormExists, id)
	}
	r.forms[id] = f
	return nil
}

// Remove drops the form with the given id. It reports whether a form was
// removed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.forms[id]; !ok {
		return false
	}
	delete(r.forms, id)
	return true
}

// Get retrieves a form by id.
func (r *Registry) Get(id string) (Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.forms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFormNotFound, id)
	}
	return f, nil
}

// List returns a sorted list of registered ids.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.forms))
	for id := range r.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether a form is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.forms[id]
	return ok
}

// Len reports the number of live forms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forms)
}
