// Package config defines the configuration model for the arbiter core
// and its loading pipeline: YAML parsing, defaults, validation, and
// environment variable overrides.
//
// Configuration problems are construction-time failures: Load returns a
// typed *ConfigError and no component is ever built from a partially
// valid configuration.
package config
