// Package statemachine provides the statekit integration for the pipeline.
package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/groundwork/domain/task"
)

// Context carries the run state through the state machine.
type Context struct {
	State *task.State
}

// NewContext creates a new machine context for a run.
func NewContext(s *task.State) *Context {
	return &Context{State: s}
}

// Stage IDs as StateID type for statekit.
const (
	stagePlanning    statekit.StateID = statekit.StateID(task.StagePlanning)
	stageResearching statekit.StateID = statekit.StateID(task.StageResearching)
	stageWriting     statekit.StateID = statekit.StateID(task.StageWriting)
	stageVerifying   statekit.StateID = statekit.StateID(task.StageVerifying)
	stageDone        statekit.StateID = statekit.StateID(task.StageDone)
	stageFailed      statekit.StateID = statekit.StateID(task.StageFailed)
)

// NewPipelineMachine creates the canonical pipeline statechart: a linear
// plan → research → write → verify flow with exactly one conditional
// back-edge (verify → research, guarded by the retry budget).
func NewPipelineMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("pipeline").
		WithInitial(stagePlanning).
		WithContext(&Context{}).
		// Register actions
		WithAction("markStage", markStage).
		// Register guards
		WithGuard("retryBudget", guardRetryBudget).
		WithGuard("notTerminal", guardNotTerminal).
		// Define stages
		State(stagePlanning).
			On("RESEARCH").Target(stageResearching).Guard("notTerminal").Do("markStage").
			On("FAIL").Target(stageFailed).Do("markStage").
			Done().
		State(stageResearching).
			On("WRITE").Target(stageWriting).Guard("notTerminal").Do("markStage").
			On("FAIL").Target(stageFailed).Do("markStage").
			Done().
		State(stageWriting).
			On("VERIFY").Target(stageVerifying).Guard("notTerminal").Do("markStage").
			On("FAIL").Target(stageFailed).Do("markStage").
			Done().
		State(stageVerifying).
			On("RETRY").Target(stageResearching).Guard("retryBudget").Do("markStage").
			On("COMPLETE").Target(stageDone).Do("markStage").
			On("FAIL").Target(stageFailed).Do("markStage").
			Done().
		State(stageDone).
			Final().
			Done().
		State(stageFailed).
			Final().
			Done().
		Build()
}

// EventForTransition returns the event type that targets a stage.
func EventForTransition(to task.Stage) statekit.EventType {
	switch to {
	case task.StageResearching:
		return "RESEARCH"
	case task.StageWriting:
		return "WRITE"
	case task.StageVerifying:
		return "VERIFY"
	case task.StageDone:
		return "COMPLETE"
	case task.StageFailed:
		return "FAIL"
	default:
		return statekit.EventType(to)
	}
}

// TransitionPayload carries additional data with a transition event.
type TransitionPayload struct {
	ToStage task.Stage
	Reason  string
}

// Interpreter wraps the statekit interpreter with pipeline-specific
// functionality.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates a new interpreter for the pipeline state machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start initializes the interpreter and enters the planning stage.
func (i *Interpreter) Start() {
	i.interp.Start()
	i.ctx.State.TransitionTo(task.Stage(i.interp.State().Value))
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// Stage returns the current stage.
func (i *Interpreter) Stage() task.Stage {
	return task.Stage(i.interp.State().Value)
}

// Transition attempts to move to the target stage. A rejected transition
// leaves the machine where it was and returns an error; for the
// verify → research back-edge that means the retry budget guard refused
// a reroute, which the orchestrator treats as a bug.
func (i *Interpreter) Transition(to task.Stage, reason string) error {
	from := i.Stage()

	i.interp.Send(statekit.Event{
		Type:    EventForTransition(to),
		Payload: TransitionPayload{ToStage: to, Reason: reason},
	})

	if got := i.Stage(); got != to {
		return fmt.Errorf("%w: %s -> %s (still %s)", ErrTransitionRejected, from, to, got)
	}
	return nil
}

// IsTerminal returns true if the interpreter reached a final stage.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}
