package statemachine

import (
	"errors"

	"github.com/felixgeelhaar/statekit"
)

// ErrTransitionRejected indicates a guard refused a transition.
var ErrTransitionRejected = errors.New("transition rejected")

// guardRetryBudget gates the verify → research back-edge. A reroute is
// legal only while no final output exists and the fail count is within
// budget. The verifier already finalizes on budget exhaustion, so a
// rejection here signals an orchestration bug, not a normal flow.
//
// In statekit, guards receive the context by value; our context is
// *Context, so the guard receives *Context directly.
func guardRetryBudget(ctx *Context, _ statekit.Event) bool {
	if ctx == nil || ctx.State == nil {
		return false
	}
	return !ctx.State.Terminal() && !ctx.State.RetriesExhausted()
}

// guardNotTerminal blocks forward edges once a final output exists.
func guardNotTerminal(ctx *Context, _ statekit.Event) bool {
	if ctx == nil || ctx.State == nil {
		return false
	}
	return !ctx.State.Terminal()
}
