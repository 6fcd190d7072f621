// Package schema derives form field definitions from OpenAPI 3 component
// schemas using kin-openapi, so form subscriptions and hidden fields can be
// declared by the same document that describes the content API.
package schema
