// Package binder implements the form lifecycle binder: it creates a form
// when a component mounts with initial values, keeps its field definitions
// and label in sync with the latest configuration, stores value snapshots
// for the host to render, and releases the registration on unmount.
package binder
