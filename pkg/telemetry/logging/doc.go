// Package logging constructs the slog loggers used across the arbiter
// core.
package logging
