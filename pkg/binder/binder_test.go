package binder_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/binder"
	"github.com/goliatone/go-formbind/pkg/config"
	"github.com/goliatone/go-formbind/pkg/engines/memory"
	"github.com/goliatone/go-formbind/pkg/form"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/values"
)

// recordingEngine wraps the memory engine and logs lifecycle calls in order.
type recordingEngine struct {
	*memory.Engine
	events    []string
	createErr error
}

func newRecordingEngine() *recordingEngine {
	return &recordingEngine{Engine: memory.New()}
}

func (e *recordingEngine) CreateForm(cfg form.Config) (form.Form, error) {
	if e.createErr != nil {
		return nil, e.createErr
	}
	f, err := e.Engine.CreateForm(cfg)
	if err != nil {
		return nil, err
	}
	e.events = append(e.events, "create:"+f.ID())
	return &recordingForm{Form: f, engine: e}, nil
}

func (e *recordingEngine) RemoveForm(id string) {
	e.events = append(e.events, "remove:"+id)
	e.Engine.RemoveForm(id)
}

type recordingForm struct {
	form.Form
	engine *recordingEngine
}

func (f *recordingForm) Subscribe(listener form.Listener, selector form.Subscription) func() {
	f.engine.events = append(f.engine.events, "subscribe:"+f.ID())
	unsubscribe := f.Form.Subscribe(listener, selector)
	return func() {
		f.engine.events = append(f.engine.events, "unsubscribe:"+f.ID())
		unsubscribe()
	}
}

func articleConfig(id string) binder.Config {
	return binder.Config{
		ID:      id,
		Label:   "Article",
		Initial: values.FromAny(map[string]any{"title": "old"}),
		Fields:  []model.Field{{Name: "title"}},
	}
}

func newBinder(engine form.Engine, options ...binder.Option) *binder.Binder {
	return binder.New(engine, append([]binder.Option{binder.WithMode(config.ModeInteractive)}, options...)...)
}

func TestBindCreatesAndSubscribes(t *testing.T) {
	engine := newRecordingEngine()
	var rendered []values.Value
	b := newBinder(engine, binder.WithRenderFunc(func(v values.Value) { rendered = append(rendered, v) }))

	cfg := articleConfig("article")
	current, handle, err := b.Bind(cfg)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if handle == nil {
		t.Fatalf("expected live form")
	}
	if !current.Equal(cfg.Initial) {
		t.Fatalf("expected initial values, got %s", current)
	}
	if diff := cmp.Diff([]string{"create:article", "subscribe:article"}, engine.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	if err := handle.Change("title", values.String("typed")); err != nil {
		t.Fatalf("change: %v", err)
	}
	if len(rendered) != 1 {
		t.Fatalf("expected one re-render, got %d", len(rendered))
	}
	if got, _ := b.Values().Get("title"); got.Any() != "typed" {
		t.Fatalf("expected stored snapshot to follow the form, got %s", b.Values())
	}

	// Same inputs on the next render keep the registration.
	_, again, err := b.Bind(cfg)
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if again != handle || len(engine.events) != 2 {
		t.Fatalf("expected binding to be kept, events %v", engine.events)
	}
}

func TestBindRecreatesOnIdentifierChange(t *testing.T) {
	engine := newRecordingEngine()
	b := newBinder(engine)

	first := articleConfig("a")
	if _, _, err := b.Bind(first); err != nil {
		t.Fatalf("bind: %v", err)
	}
	second := first
	second.ID = "b"
	_, handle, err := b.Bind(second)
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if handle.ID() != "b" {
		t.Fatalf("expected form b, got %q", handle.ID())
	}

	want := []string{"create:a", "subscribe:a", "unsubscribe:a", "remove:a", "create:b", "subscribe:b"}
	if diff := cmp.Diff(want, engine.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, engine.IDs()); diff != "" {
		t.Fatalf("live forms mismatch (-want +got):\n%s", diff)
	}
}

func TestBindRecreatesOnInitialReferenceChange(t *testing.T) {
	engine := newRecordingEngine()
	b := newBinder(engine)

	cfg := articleConfig("a")
	_, first, err := b.Bind(cfg)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := first.Change("title", values.String("typed")); err != nil {
		t.Fatalf("change: %v", err)
	}

	cfg.Initial = values.FromAny(map[string]any{"title": "old"})
	current, second, err := b.Bind(cfg)
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if len(engine.events) != 6 {
		t.Fatalf("expected recreation, events %v", engine.events)
	}
	if got, _ := current.Get("title"); got.Any() != "old" {
		t.Fatalf("expected fresh form seeded from new initial values, got %s", current)
	}
	if second.ID() != "a" || engine.Len() != 1 {
		t.Fatalf("expected exactly one live registration")
	}
}

func TestBindPushesFieldsAndLabelInPlace(t *testing.T) {
	engine := newRecordingEngine()
	b := newBinder(engine)

	cfg := articleConfig("a")
	_, handle, err := b.Bind(cfg)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}

	cfg.Fields = []model.Field{{Name: "title"}, {Name: "summary"}}
	cfg.Label = "Story"
	_, again, err := b.Bind(cfg)
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if again != handle {
		t.Fatalf("field or label changes must not recreate the form")
	}
	if handle.Label() != "Story" {
		t.Fatalf("expected label updated, got %q", handle.Label())
	}
	want := map[string]form.FieldMeta{
		"title":   {Source: form.SourceDefinition},
		"summary": {Source: form.SourceDefinition},
	}
	if diff := cmp.Diff(want, handle.FieldSubscriptions()); diff != "" {
		t.Fatalf("subscriptions mismatch (-want +got):\n%s", diff)
	}
	if len(engine.events) != 2 {
		t.Fatalf("unexpected lifecycle events %v", engine.events)
	}
}

func TestBindWithoutInitialValues(t *testing.T) {
	engine := newRecordingEngine()
	b := newBinder(engine)

	cfg := articleConfig("a")
	cfg.Initial = values.Value{}
	current, handle, err := b.Bind(cfg)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if handle != nil || !current.IsAbsent() {
		t.Fatalf("expected no form and absent values")
	}
	if len(engine.events) != 0 {
		t.Fatalf("expected no engine calls, got %v", engine.events)
	}
}

func TestBindDropsFormWhenInitialValuesDisappear(t *testing.T) {
	engine := newRecordingEngine()
	b := newBinder(engine)

	cfg := articleConfig("a")
	if _, _, err := b.Bind(cfg); err != nil {
		t.Fatalf("bind: %v", err)
	}
	cfg.Initial = values.FromAny(map[string]any{})
	_, handle, err := b.Bind(cfg)
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if handle != nil || b.Form() != nil || engine.Len() != 0 {
		t.Fatalf("expected binding released")
	}
}

func TestBindStaticModeNeverCreatesForms(t *testing.T) {
	engine := newRecordingEngine()
	b := binder.New(engine, binder.WithMode(config.ModeStatic))

	cfg := articleConfig("a")
	current, handle, err := b.Bind(cfg)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if handle != nil {
		t.Fatalf("static mode must not return a form")
	}
	if !current.Same(cfg.Initial) {
		t.Fatalf("static mode must return the initial values as-is")
	}
	if len(engine.events) != 0 {
		t.Fatalf("expected no engine calls, got %v", engine.events)
	}
}

func TestCloseUnsubscribesBeforeRemoving(t *testing.T) {
	engine := newRecordingEngine()
	var renders int
	b := newBinder(engine, binder.WithRenderFunc(func(values.Value) { renders++ }))

	_, handle, err := b.Bind(articleConfig("a"))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	want := []string{"create:a", "subscribe:a", "unsubscribe:a", "remove:a"}
	if diff := cmp.Diff(want, engine.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if engine.Len() != 0 || b.Form() != nil {
		t.Fatalf("expected no live registration after close")
	}

	_ = handle.Change("title", values.String("late"))
	if renders != 0 {
		t.Fatalf("released form must not trigger renders")
	}
}

func TestBindCreateFailureLeavesNoRegistration(t *testing.T) {
	engine := newRecordingEngine()
	boom := errors.New("engine down")
	engine.createErr = boom
	b := newBinder(engine)

	cfg := articleConfig("a")
	current, handle, err := b.Bind(cfg)
	if !errors.Is(err, boom) {
		t.Fatalf("expected engine error, got %v", err)
	}
	if handle != nil || b.Form() != nil {
		t.Fatalf("expected no form after failure")
	}
	if !current.Same(cfg.Initial) {
		t.Fatalf("expected initial values on failure")
	}

	engine.createErr = nil
	if _, handle, err = b.Bind(cfg); err != nil || handle == nil {
		t.Fatalf("expected retry to bind, got %v", err)
	}
}

func TestBindAllowsSubscribersToRebind(t *testing.T) {
	b := newBinder(memory.New())
	cfg := articleConfig("a")
	_, handle, err := b.Bind(cfg)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}

	var nested []error
	handle.Subscribe(func(form.Snapshot) {
		_, _, err := b.Bind(cfg)
		nested = append(nested, err)
	}, form.Subscription{Label: true, Fields: true})

	cfg.Label = "Story"
	cfg.Fields = []model.Field{{Name: "title"}, {Name: "summary"}}
	done := make(chan error, 1)
	go func() {
		_, _, err := b.Bind(cfg)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("rebind: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Bind blocked while a subscriber called Bind")
	}

	if len(nested) != 2 {
		t.Fatalf("expected fields and label notifications, got %d", len(nested))
	}
	for _, err := range nested {
		if err != nil {
			t.Fatalf("nested bind: %v", err)
		}
	}
	if handle.Label() != "Story" {
		t.Fatalf("expected label updated, got %q", handle.Label())
	}
}
