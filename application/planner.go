package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/groundwork/domain/schema"
	"github.com/felixgeelhaar/groundwork/domain/task"
	"github.com/felixgeelhaar/groundwork/infrastructure/logging"
	"github.com/felixgeelhaar/groundwork/infrastructure/model"
)

// Planner turns the user task into an ordered execution plan. It never
// retrieves and never drafts; a schema failure here is fatal to the run.
type Planner struct {
	invoker model.Invoker
}

// NewPlanner creates the planning stage.
func NewPlanner(invoker model.Invoker) *Planner {
	return &Planner{invoker: invoker}
}

// Run executes one planning pass, writing the plan exactly once.
func (p *Planner) Run(ctx context.Context, s *task.State) error {
	var out schema.PlanOutput
	req := model.Request{
		System: plannerSystem,
		User:   renderPlannerInput(s.UserTask),
	}

	if err := p.invoker.Invoke(ctx, req, &out); err != nil {
		return &StageError{Stage: task.StagePlanning, Err: err}
	}

	if err := s.SetPlan(out.Steps); err != nil {
		return &StageError{Stage: task.StagePlanning, Err: err}
	}

	s.LogEvent("planner", "created plan", fmt.Sprintf("%d steps", len(out.Steps)))
	logging.Info().
		Add(logging.RunID(s.ID)).
		Add(logging.Stage(task.StagePlanning)).
		Add(logging.Str("steps", fmt.Sprintf("%d", len(out.Steps)))).
		Msg("plan created")

	return nil
}
