package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbind/pkg/binder"
	"github.com/goliatone/go-formbind/pkg/form"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/values"
)

// Scenario describes one reconciliation run: the form as a binder would
// create it, which fields the user is editing, and the external values.
type Scenario struct {
	ID       string         `json:"id" yaml:"id"`
	Label    string         `json:"label" yaml:"label"`
	Fields   []model.Field  `json:"fields" yaml:"fields"`
	OpenAPI  *OpenAPISource `json:"openapi,omitempty" yaml:"openapi,omitempty"`
	Hidden   []string       `json:"hidden" yaml:"hidden"`
	Values   values.Value   `json:"values" yaml:"values"`
	External values.Value   `json:"external" yaml:"external"`
	Active   []string       `json:"active" yaml:"active"`

	// Source is the file the scenario was read from.
	Source string `json:"-" yaml:"-"`
}

// OpenAPISource declares fields by pointing at a component schema instead of
// listing them inline.
type OpenAPISource struct {
	File   string `json:"file" yaml:"file"`
	Schema string `json:"schema" yaml:"schema"`
}

// Parse decodes a JSON or YAML scenario document. source is used in errors.
func Parse(data []byte, source string) (*Scenario, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("scenario: file %s is empty", source)
	}

	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		sc = Scenario{}
		if err := yaml.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("scenario: parse %s: invalid JSON or YAML: %w", source, err)
		}
	}
	sc.Source = source
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads a scenario from disk and resolves its OpenAPI field source
// relative to the scenario file.
func LoadFile(ctx context.Context, path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	sc, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	if err := sc.resolveFields(ctx, func(file string) schema.Source {
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(path), file)
		}
		return schema.SourceFromFile(file)
	}); err != nil {
		return nil, err
	}
	return sc, nil
}

// LoadFS parses every *.scenario.json, *.scenario.yaml and *.scenario.yml
// file in fsys, keyed by scenario id. Other files, such as the OpenAPI
// documents scenarios point at, are skipped. Duplicate ids are rejected.
func LoadFS(ctx context.Context, fsys fs.FS) (map[string]*Scenario, error) {
	out := make(map[string]*Scenario)
	if fsys == nil {
		return out, nil
	}
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isScenarioFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("scenario: read %s: %w", path, err)
		}
		sc, err := Parse(data, path)
		if err != nil {
			return err
		}
		dir := filepath.Dir(path)
		if err := sc.resolveFields(ctx, func(file string) schema.Source {
			return schema.SourceFromFS(fsys, filepath.ToSlash(filepath.Join(dir, file)))
		}); err != nil {
			return err
		}
		if _, exists := out[sc.ID]; exists {
			return fmt.Errorf("scenario: duplicate scenario %q (file %s)", sc.ID, path)
		}
		out[sc.ID] = sc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HiddenFields returns the manually tracked hidden paths as form metadata.
func (s *Scenario) HiddenFields() map[string]form.FieldMeta {
	if len(s.Hidden) == 0 {
		return nil
	}
	out := make(map[string]form.FieldMeta, len(s.Hidden))
	for _, path := range s.Hidden {
		out[path] = form.FieldMeta{Source: form.SourceManual}
	}
	return out
}

// BinderConfig returns the configuration a mounted component would pass.
func (s *Scenario) BinderConfig() binder.Config {
	return binder.Config{
		ID:           s.ID,
		Label:        s.Label,
		Initial:      s.Values,
		Fields:       model.Clone(s.Fields),
		HiddenFields: s.HiddenFields(),
	}
}

// ConcretePaths lists every leaf path of the form values, sorted. The CLI
// offers them as candidates for the active field.
func (s *Scenario) ConcretePaths() []string {
	flat := s.Values.Flatten()
	out := make([]string, 0, len(flat))
	for path := range flat {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func (s *Scenario) validate() error {
	s.ID = strings.TrimSpace(s.ID)
	if s.ID == "" {
		return fmt.Errorf("scenario: file %s has no id", s.Source)
	}
	if len(s.Fields) > 0 && s.OpenAPI != nil {
		return fmt.Errorf("scenario: %q declares both fields and openapi", s.ID)
	}
	if s.OpenAPI != nil && (s.OpenAPI.File == "" || s.OpenAPI.Schema == "") {
		return fmt.Errorf("scenario: %q openapi source needs file and schema", s.ID)
	}
	for _, path := range s.Active {
		if strings.Contains(path, "INDEX") {
			return fmt.Errorf("scenario: %q active path %q must be concrete", s.ID, path)
		}
	}
	return nil
}

func (s *Scenario) resolveFields(ctx context.Context, source func(string) schema.Source) error {
	if s.OpenAPI == nil {
		return nil
	}
	doc, err := schema.Load(ctx, source(s.OpenAPI.File), schema.LoadOptions{})
	if err != nil {
		return fmt.Errorf("scenario: %q: %w", s.ID, err)
	}
	fields, err := doc.Fields(s.OpenAPI.Schema)
	if err != nil {
		return fmt.Errorf("scenario: %q: %w", s.ID, err)
	}
	s.Fields = fields
	return nil
}

func isScenarioFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{".scenario.json", ".scenario.yaml", ".scenario.yml"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
