package application

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/groundwork/domain/task"
)

// Application errors.
var (
	// ErrNoInvoker is returned when a pipeline is built without a model invoker.
	ErrNoInvoker = errors.New("no model invoker configured")

	// ErrNoRetriever is returned when a pipeline is built without a retriever.
	ErrNoRetriever = errors.New("no retriever configured")
)

// StageError wraps a fatal failure inside one pipeline stage. Stages have
// no local recovery: a StageError aborts the run and surfaces to the
// caller, attributable to the collaborator that failed.
type StageError struct {
	Stage task.Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
