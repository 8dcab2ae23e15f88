package task

import "errors"

// Domain errors for the pipeline state record.
var (
	// ErrUncitedFact indicates an attempt to construct a fact without citations.
	ErrUncitedFact = errors.New("fact has no citations")

	// ErrPlanAlreadySet indicates the plan was written more than once.
	ErrPlanAlreadySet = errors.New("plan already set")

	// ErrEmptyPlan indicates an attempt to set an empty plan.
	ErrEmptyPlan = errors.New("plan is empty")

	// ErrAlreadyFinal indicates the final output was written more than once.
	ErrAlreadyFinal = errors.New("final output already set")

	// ErrEmptyFinalOutput indicates an attempt to finalize with empty output.
	ErrEmptyFinalOutput = errors.New("final output is empty")
)
