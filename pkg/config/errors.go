package config

import "fmt"

// ConfigError represents an invalid configuration value. It is raised
// at load/construction time only; a component is never built from a
// configuration that failed validation.
type ConfigError struct {
	// Section is the configuration section ("source", "resilience", ...).
	Section string

	// Field is the offending field within the section.
	Field string

	// Message describes why the value is invalid.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration: %s.%s: %s", e.Section, e.Field, e.Message)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Section, e.Message)
}
