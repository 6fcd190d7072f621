// Package logging builds the zap loggers used by the CLI and helpers shared
// by packages that accept an optional *zap.Logger.
package logging
