package model

import (
	"errors"
	"fmt"
)

// ErrSchemaViolation indicates a model returned output that could not be
// parsed into the requested structured shape. No stage recovers from it
// locally; it surfaces as a fatal run failure unless the caller wraps the
// invoker with a bounded resilience retry.
var ErrSchemaViolation = errors.New("schema violation")

// SchemaViolationError carries the raw model output alongside the parse
// or validation failure.
type SchemaViolationError struct {
	Raw string
	Err error
}

// Error implements the error interface.
func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation: %v", e.Err)
}

// Unwrap exposes ErrSchemaViolation for errors.Is and the cause for errors.As.
func (e *SchemaViolationError) Unwrap() []error {
	return []error{ErrSchemaViolation, e.Err}
}
