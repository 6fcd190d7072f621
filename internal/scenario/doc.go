// Package scenario loads reconciliation scenarios from JSON or YAML files
// for the CLI and for fixtures.
package scenario
