package compress

import "fmt"

// Error represents a compression or decompression failure. It is
// distinct from source-layer errors: a corrupt cached stream is a cache
// integrity problem, not a loading problem.
type Error struct {
	// Algorithm is the algorithm involved in the failure.
	Algorithm Algorithm

	// Operation is "compress" or "decompress".
	Operation string

	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Operation, e.Algorithm, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Operation, e.Algorithm, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}
