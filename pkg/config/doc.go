// Package config resolves module configuration with viper: built-in
// defaults, an optional formbind.yaml, then FORMBIND_* environment
// variables. It also exposes the process-wide deployment mode that switches
// binders into static mode.
package config
