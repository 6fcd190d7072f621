package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-formbind/pkg/form"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/values"
)

// Form is the in-memory form implementation. All methods are safe for
// concurrent use; listeners always run after the internal lock is released.
type Form struct {
	mu sync.Mutex

	id            string
	label         string
	fields        []model.Field
	manualHidden  map[string]form.FieldMeta
	hidden        map[string]form.FieldMeta
	subscriptions map[string]form.FieldMeta
	initial       values.Value
	values        values.Value
	states        map[string]*form.FieldState
	active        string

	subscribers map[uint64]subscriber
	nextSubID   uint64

	batchDepth int
	pending    form.Subscription
}

type subscriber struct {
	listener form.Listener
	selector form.Subscription
}

// Ensure the implementation satisfies the public interface.
var _ form.Form = (*Form)(nil)

func newForm(id string, cfg form.Config) *Form {
	f := &Form{
		id:           id,
		label:        cfg.Label,
		initial:      cfg.InitialValues,
		values:       cfg.InitialValues,
		manualHidden: make(map[string]form.FieldMeta, len(cfg.HiddenFields)),
		states:       make(map[string]*form.FieldState),
		subscribers:  make(map[uint64]subscriber),
	}
	for path, meta := range cfg.HiddenFields {
		if meta.Source == "" {
			meta.Source = form.SourceManual
		}
		f.manualHidden[path] = meta
	}
	f.setFieldsLocked(cfg.Fields)
	return f
}

// ID returns the form id.
func (f *Form) ID() string { return f.id }

// Label returns the display label.
func (f *Form) Label() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.label
}

// SetLabel updates the display label in place.
func (f *Form) SetLabel(label string) {
	f.mu.Lock()
	if f.label == label {
		f.mu.Unlock()
		return
	}
	f.label = label
	f.pending.Label = true
	f.flushLocked()
}

// Fields returns a copy of the declared field definitions.
func (f *Form) Fields() []model.Field {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.Clone(f.fields)
}

// UpdateFields replaces the declared definitions and re-derives the field
// subscriptions and definition-level hidden fields from them.
func (f *Form) UpdateFields(fields []model.Field) {
	f.mu.Lock()
	f.setFieldsLocked(fields)
	f.pending.Fields = true
	f.flushLocked()
}

func (f *Form) setFieldsLocked(fields []model.Field) {
	f.fields = model.Clone(fields)

	f.subscriptions = make(map[string]form.FieldMeta)
	for _, pattern := range model.Patterns(f.fields) {
		f.subscriptions[pattern] = form.FieldMeta{Source: form.SourceDefinition}
	}

	f.hidden = make(map[string]form.FieldMeta, len(f.manualHidden))
	for _, pattern := range model.HiddenPatterns(f.fields) {
		f.hidden[pattern] = form.FieldMeta{Source: form.SourceDefinition}
	}
	for path, meta := range f.manualHidden {
		f.hidden[path] = meta
	}
}

// SetHiddenField tracks a hidden field path (which may be a pattern).
func (f *Form) SetHiddenField(path string, meta form.FieldMeta) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if meta.Source == "" {
		meta.Source = form.SourceManual
	}
	f.manualHidden[path] = meta
	f.hidden[path] = meta
}

// RemoveHiddenField stops tracking a manually added hidden field.
func (f *Form) RemoveHiddenField(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.manualHidden, path)
	f.setFieldsLocked(f.fields)
}

// HiddenFields returns a copy of the hidden field mapping.
func (f *Form) HiddenFields() map[string]form.FieldMeta {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyMeta(f.hidden)
}

// FieldSubscriptions returns a copy of the subscribed field mapping.
func (f *Form) FieldSubscriptions() map[string]form.FieldMeta {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyMeta(f.subscriptions)
}

// Values returns the current values tree.
func (f *Form) Values() values.Value {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// RegisterField creates field state for a concrete path, as a rendered input
// would. Registering an existing path is a no-op.
func (f *Form) RegisterField(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateLocked(path)
}

// UnregisterField drops the field state for path.
func (f *Form) UnregisterField(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, path)
	if f.active == path {
		f.active = ""
	}
}

// Focus marks path as the active field, blurring any previously active one.
func (f *Form) Focus(path string) {
	f.mu.Lock()
	if f.active == path {
		f.mu.Unlock()
		return
	}
	if prev, ok := f.states[f.active]; ok {
		prev.Active = false
		prev.Touched = true
	}
	state := f.stateLocked(path)
	state.Active = true
	state.Visited = true
	f.active = path
	f.pending.Active = true
	f.flushLocked()
}

// Blur clears the active flag on path and marks it touched.
func (f *Form) Blur(path string) {
	f.mu.Lock()
	state, ok := f.states[path]
	if !ok || !state.Active {
		f.mu.Unlock()
		return
	}
	state.Active = false
	state.Touched = true
	if f.active == path {
		f.active = ""
	}
	f.pending.Active = true
	f.flushLocked()
}

// SetActive flags path as under edit, or releases it, without changing any
// other field. Editors holding several inputs open at once use it instead of
// Focus.
func (f *Form) SetActive(path string, active bool) {
	f.mu.Lock()
	state := f.stateLocked(path)
	if state.Active == active {
		f.mu.Unlock()
		return
	}
	state.Active = active
	if active {
		state.Visited = true
	} else {
		state.Touched = true
		if f.active == path {
			f.active = ""
		}
	}
	f.pending.Active = true
	f.flushLocked()
}

// Active returns the currently focused path, if any.
func (f *Form) Active() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// FieldState returns a copy of the live state for a concrete path. Paths that
// were never registered report false.
func (f *Form) FieldState(path string) (form.FieldState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[path]
	if !ok {
		return form.FieldState{}, false
	}
	out := *state
	out.Value, _ = f.values.Get(path)
	return out, true
}

// Change writes value at path. An absent value removes the path. Writes that
// leave the tree unchanged do not notify.
func (f *Form) Change(path string, value values.Value) error {
	f.mu.Lock()
	current, _ := f.values.Get(path)
	if current.Equal(value) {
		f.mu.Unlock()
		return nil
	}

	var next values.Value
	if value.IsAbsent() {
		next = f.values.Delete(path)
	} else {
		updated, err := f.values.Set(path, value)
		if err != nil {
			f.mu.Unlock()
			return fmt.Errorf("memory: change %q: %w", path, err)
		}
		next = updated
	}
	f.values = next

	if state, ok := f.states[path]; ok {
		initial, _ := f.initial.Get(path)
		state.Dirty = !initial.Equal(value)
	}
	f.pending.Values = true
	f.flushLocked()
	return nil
}

// Batch runs fn with notifications deferred until the outermost batch
// returns, so subscribers observe one consolidated change. Changes made
// before fn fails are kept; the error is returned unchanged.
func (f *Form) Batch(fn func() error) error {
	if fn == nil {
		return nil
	}
	f.mu.Lock()
	f.batchDepth++
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.batchDepth--
		f.flushLocked()
	}()

	return fn()
}

// Subscribe registers listener for the parts of the form named by selector.
// The returned function removes the subscription and is safe to call more
// than once.
func (f *Form) Subscribe(listener form.Listener, selector form.Subscription) func() {
	if listener == nil || !selector.Any() {
		return func() {}
	}
	f.mu.Lock()
	f.nextSubID++
	id := f.nextSubID
	f.subscribers[id] = subscriber{listener: listener, selector: selector}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, id)
			f.mu.Unlock()
		})
	}
}

// Subscribers reports how many listeners are attached.
func (f *Form) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

func (f *Form) stateLocked(path string) *form.FieldState {
	state, ok := f.states[path]
	if !ok {
		state = &form.FieldState{Name: path}
		f.states[path] = state
	}
	return state
}

// flushLocked must be called with f.mu held; it releases the lock. Pending
// changes are delivered only outside a batch.
func (f *Form) flushLocked() {
	if f.batchDepth > 0 || !f.pending.Any() {
		f.mu.Unlock()
		return
	}
	changed := f.pending
	f.pending = form.Subscription{}

	snapshot := form.Snapshot{
		ID:     f.id,
		Label:  f.label,
		Values: f.values,
		Fields: model.Clone(f.fields),
		Active: f.active,
	}

	ids := make([]uint64, 0, len(f.subscribers))
	for id, sub := range f.subscribers {
		if matches(sub.selector, changed) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]form.Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, f.subscribers[id].listener)
	}
	f.mu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
}

func matches(selector, changed form.Subscription) bool {
	return (selector.Values && changed.Values) ||
		(selector.Label && changed.Label) ||
		(selector.Fields && changed.Fields) ||
		(selector.Active && changed.Active)
}

func copyMeta(src map[string]form.FieldMeta) map[string]form.FieldMeta {
	out := make(map[string]form.FieldMeta, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
