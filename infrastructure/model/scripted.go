package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// ScriptStep defines one expected invocation and the value to return.
type ScriptStep struct {
	// ExpectSystemContains asserts the system instructions contain this
	// substring before the value is returned. Empty skips the check.
	ExpectSystemContains string

	// Value is marshaled and unmarshaled into the caller's output target.
	Value any

	// Err, when set, is returned instead of a value.
	Err error
}

// ScriptedInvoker replays a predefined sequence for deterministic testing.
// It validates that each invocation matches the expected role before
// producing its value.
type ScriptedInvoker struct {
	steps []ScriptStep
	index int
	mu    sync.Mutex
}

// NewScriptedInvoker creates a scripted invoker with the given steps.
func NewScriptedInvoker(steps ...ScriptStep) *ScriptedInvoker {
	return &ScriptedInvoker{steps: steps}
}

// Invoke implements the Invoker interface.
func (s *ScriptedInvoker) Invoke(_ context.Context, req Request, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.steps) {
		return &ScriptExhaustedError{Calls: s.index}
	}

	step := s.steps[s.index]

	if step.ExpectSystemContains != "" && !strings.Contains(req.System, step.ExpectSystemContains) {
		return &UnexpectedInvocationError{
			StepIndex: s.index,
			Expected:  step.ExpectSystemContains,
		}
	}

	s.index++

	if step.Err != nil {
		return step.Err
	}

	// Round-trip through JSON so the script can use the contract types
	// directly while the target stays opaque.
	data, err := json.Marshal(step.Value)
	if err != nil {
		return fmt.Errorf("scripted value not marshalable: %w", err)
	}
	return Decode(string(data), out)
}

// Calls returns the number of invocations consumed so far.
func (s *ScriptedInvoker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// ScriptExhaustedError indicates more invocations than scripted steps.
type ScriptExhaustedError struct {
	Calls int
}

// Error implements the error interface.
func (e *ScriptExhaustedError) Error() string {
	return fmt.Sprintf("script exhausted after %d calls", e.Calls)
}

// UnexpectedInvocationError indicates an invocation for the wrong role.
type UnexpectedInvocationError struct {
	StepIndex int
	Expected  string
}

// Error implements the error interface.
func (e *UnexpectedInvocationError) Error() string {
	return fmt.Sprintf("step %d: system instructions do not contain %q", e.StepIndex, e.Expected)
}
