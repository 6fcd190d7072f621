package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formbind/pkg/model"
)

const (
	extensionNamespace = "x-formbind"
	hiddenExtensionKey = "x-hidden"
)

// Option customises schema conversion.
type Option func(*converter)

// WithLabeler overrides how field labels are derived from property names.
func WithLabeler(fn func(string) string) Option {
	return func(c *converter) {
		if fn != nil {
			c.labeler = fn
		}
	}
}

// WithReadOnlyHidden controls whether readOnly properties become hidden
// fields. Enabled by default: server managed values such as ids or versions
// are tracked by the form without being rendered.
func WithReadOnlyHidden(enabled bool) Option {
	return func(c *converter) {
		c.readOnlyHidden = enabled
	}
}

type converter struct {
	labeler        func(string) string
	readOnlyHidden bool
	stack          map[*openapi3.Schema]struct{}
}

// FieldsFromSchema converts an object schema into field definitions, one per
// property in sorted order. Arrays carry their item template in Items;
// nested objects carry their properties in Nested. Properties are hidden
// when marked readOnly, x-hidden: true, or x-formbind: {hidden: true}.
func FieldsFromSchema(schema *openapi3.Schema, options ...Option) ([]model.Field, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema: schema is required")
	}
	c := &converter{
		labeler:        DefaultLabeler,
		readOnlyHidden: true,
		stack:          make(map[*openapi3.Schema]struct{}),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if t := schemaType(schema); t != "" && t != "object" {
		return nil, fmt.Errorf("schema: expected object schema, got %q", t)
	}
	return c.properties(schema)
}

func (c *converter) properties(schema *openapi3.Schema) ([]model.Field, error) {
	c.stack[schema] = struct{}{}
	defer delete(c.stack, schema)

	properties, required := collectProperties(schema)
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]model.Field, 0, len(names))
	for _, name := range names {
		_, isRequired := required[name]
		field, err := c.field(name, properties[name], isRequired)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func (c *converter) field(name string, ref *openapi3.SchemaRef, required bool) (model.Field, error) {
	field := model.Field{
		Name:     name,
		Label:    c.label(name),
		Required: required,
	}
	if ref == nil {
		field.Type = model.FieldTypeString
		return field, nil
	}
	if ref.Value == nil {
		// Unresolved reference; keep it for consumers to inspect.
		field.Type = model.FieldTypeObject
		field.Metadata = map[string]string{"$ref": ref.Ref}
		return field, nil
	}

	src := ref.Value
	field.Description = src.Description
	field.Default = src.Default
	if src.Title != "" {
		field.Label = src.Title
	}
	field.Hidden = c.hidden(src)
	field.Metadata = metadataFromSchema(ref.Ref, src)

	switch schemaType(src) {
	case "array":
		field.Type = model.FieldTypeArray
		if src.Items == nil {
			return model.Field{}, fmt.Errorf("schema: array field %q missing items", name)
		}
		item, err := c.field("", src.Items, false)
		if err != nil {
			return model.Field{}, err
		}
		item.Label = ""
		field.Items = &item
	case "object", "":
		field.Type = model.FieldTypeObject
		if !hasProperties(src) {
			if schemaType(src) == "" {
				field.Type = model.FieldTypeString
			}
			return field, nil
		}
		if _, cyclic := c.stack[src]; cyclic {
			if field.Metadata == nil {
				field.Metadata = map[string]string{}
			}
			field.Metadata["recursive"] = "true"
			return field, nil
		}
		nested, err := c.properties(src)
		if err != nil {
			return model.Field{}, err
		}
		field.Nested = nested
	default:
		field.Type = mapType(schemaType(src))
	}
	return field, nil
}

func (c *converter) label(name string) string {
	if name == "" {
		return ""
	}
	return c.labeler(name)
}

func (c *converter) hidden(src *openapi3.Schema) bool {
	if c.readOnlyHidden && src.ReadOnly {
		return true
	}
	if flag, ok := src.Extensions[hiddenExtensionKey].(bool); ok && flag {
		return true
	}
	if ns, ok := src.Extensions[extensionNamespace].(map[string]any); ok {
		if flag, ok := ns["hidden"].(bool); ok && flag {
			return true
		}
	}
	return false
}

// collectProperties merges the schema's own properties with those of its
// allOf members.
func collectProperties(schema *openapi3.Schema) (openapi3.Schemas, map[string]struct{}) {
	properties := make(openapi3.Schemas, len(schema.Properties))
	required := make(map[string]struct{}, len(schema.Required))
	var merge func(*openapi3.Schema)
	merge = func(s *openapi3.Schema) {
		for _, part := range s.AllOf {
			if part != nil && part.Value != nil {
				merge(part.Value)
			}
		}
		for name, prop := range s.Properties {
			properties[name] = prop
		}
		for _, name := range s.Required {
			required[name] = struct{}{}
		}
	}
	merge(schema)
	return properties, required
}

func hasProperties(schema *openapi3.Schema) bool {
	if len(schema.Properties) > 0 {
		return true
	}
	for _, part := range schema.AllOf {
		if part != nil && part.Value != nil && hasProperties(part.Value) {
			return true
		}
	}
	return false
}

func metadataFromSchema(ref string, src *openapi3.Schema) map[string]string {
	out := map[string]string{}
	if ref != "" {
		out["$ref"] = ref
	}
	if src.Format != "" {
		out["format"] = src.Format
	}
	if ns, ok := src.Extensions[extensionNamespace].(map[string]any); ok {
		for key, value := range ns {
			if key == "hidden" {
				continue
			}
			out[key] = toString(value)
		}
	}
	for key, value := range src.Extensions {
		if strings.HasPrefix(key, extensionNamespace+"-") {
			out[strings.TrimPrefix(key, extensionNamespace+"-")] = toString(value)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func schemaType(schema *openapi3.Schema) string {
	if schema == nil || schema.Type == nil {
		return ""
	}
	types := schema.Type.Slice()
	for _, t := range types {
		if t != "null" {
			return t
		}
	}
	return ""
}

func mapType(schemaType string) model.FieldType {
	switch schemaType {
	case "integer":
		return model.FieldTypeInteger
	case "number":
		return model.FieldTypeNumber
	case "boolean":
		return model.FieldTypeBoolean
	case "array":
		return model.FieldTypeArray
	case "object":
		return model.FieldTypeObject
	default:
		return model.FieldTypeString
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
