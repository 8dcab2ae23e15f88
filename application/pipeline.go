// Package application orchestrates the grounded document pipeline: one
// planning pass, then a bounded research → write → verify loop driven by
// the verifier's outcome.
package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/groundwork/domain/evidence"
	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/domain/task"
	"github.com/felixgeelhaar/groundwork/infrastructure/logging"
	"github.com/felixgeelhaar/groundwork/infrastructure/model"
	"github.com/felixgeelhaar/groundwork/infrastructure/observability"
	"github.com/felixgeelhaar/groundwork/infrastructure/statemachine"
)

// Pipeline owns the stage implementations and the run loop. Stages never
// talk to each other directly; all routing lives here and in the
// statechart, switching only on the verifier's outcome, never on draft
// or notes content.
type Pipeline struct {
	invoker    model.Invoker
	retriever  evidence.Retriever
	topK       int
	maxRetries int
	store      run.Store
	tracer     *observability.Provider
	meta       map[string]any

	planner    *Planner
	researcher *Researcher
	writer     *Writer
	verifier   *Verifier
}

// New creates a pipeline from the two required collaborators and options.
func New(invoker model.Invoker, retriever evidence.Retriever, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		invoker:    invoker,
		retriever:  retriever,
		topK:       DefaultTopK,
		maxRetries: task.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.invoker == nil {
		return nil, ErrNoInvoker
	}
	if p.retriever == nil {
		return nil, ErrNoRetriever
	}

	p.planner = NewPlanner(p.invoker)
	p.researcher = NewResearcher(p.invoker, p.retriever, p.topK)
	p.writer = NewWriter(p.invoker)
	p.verifier = NewVerifier(p.invoker)

	return p, nil
}

// Run executes one pipeline run on a fresh state record. On success the
// returned state always carries a non-empty FinalOutput; an error means a
// collaborator failed, never that grounding was missing.
func (p *Pipeline) Run(ctx context.Context, userTask string) (*task.State, error) {
	s := task.New(userTask, p.meta)
	s.VerifierMaxRetries = p.maxRetries

	if p.tracer != nil {
		runCtx, span := p.tracer.StartRun(ctx, s.ID, userTask)
		ctx = runCtx
		defer span.End()
	}

	machine, err := statemachine.NewPipelineMachine()
	if err != nil {
		return nil, fmt.Errorf("build state machine: %w", err)
	}
	interp := statemachine.NewInterpreter(machine, statemachine.NewContext(s))
	interp.Start()
	defer interp.Stop()

	if err := p.runStage(ctx, s, task.StagePlanning, func(ctx context.Context) error {
		return p.planner.Run(ctx, s)
	}); err != nil {
		p.abort(interp, s, err)
		return nil, err
	}

	reason := "plan complete"
	for {
		// The back-edge guard enforces that every reroute is within
		// budget and pre-terminal; a rejection here is a bug, not flow.
		if err := interp.Transition(task.StageResearching, reason); err != nil {
			return nil, fmt.Errorf("reroute to research: %w", err)
		}
		if err := p.runStage(ctx, s, task.StageResearching, func(ctx context.Context) error {
			return p.researcher.Run(ctx, s)
		}); err != nil {
			p.abort(interp, s, err)
			return nil, err
		}

		if err := interp.Transition(task.StageWriting, "research complete"); err != nil {
			return nil, err
		}
		if err := p.runStage(ctx, s, task.StageWriting, func(ctx context.Context) error {
			return p.writer.Run(ctx, s)
		}); err != nil {
			p.abort(interp, s, err)
			return nil, err
		}

		if err := interp.Transition(task.StageVerifying, "draft ready"); err != nil {
			return nil, err
		}
		outcome, err := p.runVerifier(ctx, s)
		if err != nil {
			p.abort(interp, s, err)
			return nil, err
		}

		switch outcome {
		case task.OutcomePassed:
			if err := interp.Transition(task.StageDone, "draft verified"); err != nil {
				return nil, err
			}
			p.persist(ctx, s)
			return s, nil
		case task.OutcomeTerminalFailure:
			if err := interp.Transition(task.StageFailed, "retry budget exhausted"); err != nil {
				return nil, err
			}
			p.persist(ctx, s)
			return s, nil
		case task.OutcomeRetryResearch:
			reason = "verifier requested retry"
		default:
			return nil, fmt.Errorf("unrecognized verifier outcome %q", outcome)
		}
	}
}

// runStage executes one stage function, wrapped in a span when tracing
// is configured.
func (p *Pipeline) runStage(ctx context.Context, s *task.State, stage task.Stage, fn func(context.Context) error) error {
	if p.tracer == nil {
		return fn(ctx)
	}

	stageCtx, span := p.tracer.StartStage(ctx, string(stage), s.ID)
	err := fn(stageCtx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.EndStage(span, outcome, err)
	return err
}

func (p *Pipeline) runVerifier(ctx context.Context, s *task.State) (task.Outcome, error) {
	if p.tracer == nil {
		return p.verifier.Run(ctx, s)
	}

	stageCtx, span := p.tracer.StartStage(ctx, string(task.StageVerifying), s.ID)
	outcome, err := p.verifier.Run(stageCtx, s)
	observability.EndStage(span, string(outcome), err)
	return outcome, err
}

// abort moves the machine to the failed stage after a fatal stage error.
// The state is deliberately not finalized: the caller gets the error, not
// a deliverable.
func (p *Pipeline) abort(interp *statemachine.Interpreter, s *task.State, cause error) {
	_ = interp.Transition(task.StageFailed, cause.Error())
	logging.Error().
		Add(logging.RunID(s.ID)).
		Add(logging.Stage(s.CurrentStage)).
		Add(logging.ErrorField(cause)).
		Msg("run aborted")
}

func (p *Pipeline) persist(ctx context.Context, s *task.State) {
	if p.store == nil {
		return
	}
	if err := p.store.Save(ctx, s); err != nil {
		logging.Warn().
			Add(logging.RunID(s.ID)).
			Add(logging.ErrorField(err)).
			Msg("run record not saved")
	}
}
