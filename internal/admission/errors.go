package admission

import "fmt"

// ValidationError reports malformed input rejected before any storage call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InvariantViolation reports a storage state that the admission rules say can
// never exist, such as a gated club whose stored hash is unusable. It is
// surfaced as a fatal inconsistency, never mapped to an outcome.
type InvariantViolation struct {
	Message string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("admission invariant violated: %s", e.Message)
}
