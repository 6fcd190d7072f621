package form

import (
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/values"
)

// MetaSource records where a hidden field or subscription entry came from.
type MetaSource string

const (
	SourceDefinition MetaSource = "definition"
	SourceManual     MetaSource = "manual"
)

// FieldMeta describes a hidden field or a field subscription keyed by its
// path pattern.
type FieldMeta struct {
	Source   MetaSource        `json:"source,omitempty" yaml:"source,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// FieldState is the live interaction state for one concrete field path.
type FieldState struct {
	Name    string
	Active  bool
	Touched bool
	Visited bool
	Dirty   bool
	Value   values.Value
}

// Subscription selects which parts of a form a listener cares about.
type Subscription struct {
	Values bool
	Label  bool
	Fields bool
	Active bool
}

// Any reports whether the selector subscribes to anything.
func (s Subscription) Any() bool {
	return s.Values || s.Label || s.Fields || s.Active
}

// Snapshot is what listeners receive on notification.
type Snapshot struct {
	ID     string
	Label  string
	Values values.Value
	Fields []model.Field
	Active string
}

// Listener is notified after a form change matching its Subscription.
type Listener func(Snapshot)

// Config seeds a new form.
type Config struct {
	ID            string
	Label         string
	InitialValues values.Value
	Fields        []model.Field
	HiddenFields  map[string]FieldMeta
}

// State is the values and field-state surface of a form. It is the subset
// the reconciler needs.
type State interface {
	Values() values.Value
	FieldState(path string) (FieldState, bool)
	Change(path string, value values.Value) error
	// Batch runs fn as one atomic update: subscribers observe a single
	// notification covering every Change made inside fn.
	Batch(fn func() error) error
}

// Form is a live form instance owned by an Engine.
type Form interface {
	State
	ID() string
	Label() string
	SetLabel(label string)
	Fields() []model.Field
	UpdateFields(fields []model.Field)
	HiddenFields() map[string]FieldMeta
	FieldSubscriptions() map[string]FieldMeta
	Subscribe(listener Listener, selector Subscription) (unsubscribe func())
}

// Engine creates and removes forms.
type Engine interface {
	CreateForm(cfg Config) (Form, error)
	RemoveForm(id string)
}
