package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbind/pkg/model"
)

// ErrSchemaNotFound is returned when a component schema name is unknown.
var ErrSchemaNotFound = errors.New("schema: component schema not found")

// Document is a parsed OpenAPI document.
type Document struct {
	source Source
	spec   *openapi3.T
}

// LoadOptions tune Load.
type LoadOptions struct {
	// Validate runs kin-openapi document validation after loading.
	Validate bool
	// ExternalRefs allows $ref values pointing outside the document.
	ExternalRefs bool
}

// Load reads src and parses it as an OpenAPI 3 document (JSON or YAML).
func Load(ctx context.Context, src Source, opts LoadOptions) (*Document, error) {
	if src == nil {
		return nil, errors.New("schema: source is required")
	}
	raw, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("schema: document %s is empty", src.Location())
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: opts.ExternalRefs,
	}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("schema: load %s: %w", src.Location(), err)
	}
	if opts.Validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("schema: validate %s: %w", src.Location(), err)
		}
	}
	return &Document{source: src, spec: spec}, nil
}

// Location returns the string identifier for the origin.
func (d *Document) Location() string {
	if d == nil || d.source == nil {
		return ""
	}
	return d.source.Location()
}

// SchemaNames lists the component schemas in sorted order.
func (d *Document) SchemaNames() []string {
	schemas := d.schemas()
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields converts the named component schema into field definitions.
func (d *Document) Fields(name string, options ...Option) ([]model.Field, error) {
	ref, ok := d.schemas()[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	return FieldsFromSchema(ref.Value, options...)
}

func (d *Document) schemas() openapi3.Schemas {
	if d == nil || d.spec == nil || d.spec.Components == nil {
		return nil
	}
	return d.spec.Components.Schemas
}
