package schema_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/schema"
)

const articleDocument = `
openapi: 3.0.3
info:
  title: Content API
  version: 1.0.0
paths: {}
components:
  schemas:
    Author:
      type: object
      required: [name]
      properties:
        name:
          type: string
        books:
          type: array
          items:
            type: object
            properties:
              title:
                type: string
    Article:
      type: object
      required: [title]
      properties:
        id:
          type: string
          readOnly: true
        title:
          type: string
          x-formbind:
            widget: headline
        publishedAt:
          type: string
          format: date-time
        version:
          type: integer
          x-hidden: true
        tags:
          type: array
          items:
            type: string
        authors:
          type: array
          items:
            $ref: '#/components/schemas/Author'
`

func loadArticle(t *testing.T) *schema.Document {
	t.Helper()
	doc, err := schema.Load(context.Background(),
		schema.SourceFromBytes("article.yaml", []byte(articleDocument)), schema.LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return doc
}

func TestFieldsFromComponentSchema(t *testing.T) {
	doc := loadArticle(t)
	if diff := cmp.Diff([]string{"Article", "Author"}, doc.SchemaNames()); diff != "" {
		t.Fatalf("schema names mismatch (-want +got):\n%s", diff)
	}

	fields, err := doc.Fields("Article")
	if err != nil {
		t.Fatalf("fields: %v", err)
	}

	wantVisible := []string{
		"authors.INDEX.books.INDEX.title",
		"authors.INDEX.name",
		"publishedAt",
		"tags.INDEX",
		"title",
	}
	if diff := cmp.Diff(wantVisible, model.Patterns(fields)); diff != "" {
		t.Fatalf("patterns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id", "version"}, model.HiddenPatterns(fields)); diff != "" {
		t.Fatalf("hidden patterns mismatch (-want +got):\n%s", diff)
	}

	byName := make(map[string]model.Field, len(fields))
	for _, field := range fields {
		byName[field.Name] = field
	}
	title := byName["title"]
	if !title.Required || title.Label != "Title" || title.Metadata["widget"] != "headline" {
		t.Fatalf("unexpected title field %+v", title)
	}
	published := byName["publishedAt"]
	if published.Label != "Published At" || published.Metadata["format"] != "date-time" {
		t.Fatalf("unexpected publishedAt field %+v", published)
	}
	if byName["version"].Type != model.FieldTypeInteger {
		t.Fatalf("expected integer version, got %q", byName["version"].Type)
	}
}

func TestFieldsUnknownSchema(t *testing.T) {
	_, err := loadArticle(t).Fields("Missing")
	if !errors.Is(err, schema.ErrSchemaNotFound) {
		t.Fatalf("expected ErrSchemaNotFound, got %v", err)
	}
}

func TestReadOnlyHiddenCanBeDisabled(t *testing.T) {
	fields, err := loadArticle(t).Fields("Article", schema.WithReadOnlyHidden(false))
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if diff := cmp.Diff([]string{"version"}, model.HiddenPatterns(fields)); diff != "" {
		t.Fatalf("hidden patterns mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{"api/article.yaml": {Data: []byte(articleDocument)}}
	doc, err := schema.Load(context.Background(), schema.SourceFromFS(fsys, "api/article.yaml"), schema.LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Location() != "api/article.yaml" {
		t.Fatalf("unexpected location %q", doc.Location())
	}
}

func TestLoadRejectsEmptyAndInvalidDocuments(t *testing.T) {
	ctx := context.Background()
	if _, err := schema.Load(ctx, schema.SourceFromBytes("empty", nil), schema.LoadOptions{}); err == nil {
		t.Fatalf("expected error for empty document")
	}
	if _, err := schema.Load(ctx, schema.SourceFromBytes("bad", []byte("{")), schema.LoadOptions{}); err == nil {
		t.Fatalf("expected error for malformed document")
	}
	if _, err := schema.Load(ctx, nil, schema.LoadOptions{}); err == nil {
		t.Fatalf("expected error for nil source")
	}
}

func TestDefaultLabeler(t *testing.T) {
	cases := map[string]string{
		"title":       "Title",
		"publishedAt": "Published At",
		"author_id":   "Author Id",
		"authorID":    "Author ID",
		"HTTPServer":  "HTTP Server",
		"line2":       "Line 2",
		"":            "",
	}
	for input, want := range cases {
		if got := schema.DefaultLabeler(input); got != want {
			t.Fatalf("DefaultLabeler(%q) = %q, want %q", input, got, want)
		}
	}
}
