// Package model defines the declarative field definitions a form is created
// with. Definitions nest the way content does: object fields carry Nested
// children and array fields carry an Items template describing each entry.
// Patterns flattens a definition set into the dotted path patterns a form
// engine subscribes to, using the fieldpath.Index placeholder for array
// positions (for example "authors.INDEX.name").
package model
