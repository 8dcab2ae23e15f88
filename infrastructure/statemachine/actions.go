package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/groundwork/domain/task"
)

// markStage records the entered stage on the run state.
// In statekit, actions receive a pointer to the context. Since our context
// is *Context, actions receive **Context.
func markStage(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).State == nil {
		return
	}

	c := *ctx

	var to task.Stage
	if payload, ok := event.Payload.(TransitionPayload); ok {
		to = payload.ToStage
	} else {
		to = stageFromEventType(event.Type)
	}

	if to != "" {
		c.State.TransitionTo(to)
	}
}

// stageFromEventType derives the target stage from an event type.
func stageFromEventType(eventType statekit.EventType) task.Stage {
	switch eventType {
	case "RESEARCH":
		return task.StageResearching
	case "WRITE":
		return task.StageWriting
	case "VERIFY":
		return task.StageVerifying
	case "COMPLETE":
		return task.StageDone
	case "FAIL":
		return task.StageFailed
	default:
		return task.Stage(eventType)
	}
}
