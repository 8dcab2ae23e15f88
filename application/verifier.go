package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/groundwork/domain/schema"
	"github.com/felixgeelhaar/groundwork/domain/task"
	"github.com/felixgeelhaar/groundwork/infrastructure/logging"
	"github.com/felixgeelhaar/groundwork/infrastructure/model"
)

// Verifier judges the draft against the research notes and owns the
// retry policy. It is the only stage that writes FinalOutput: on a pass
// verdict the draft is promoted verbatim; on budget exhaustion the fixed
// safe-failure deliverable terminates the run.
type Verifier struct {
	invoker model.Invoker
}

// NewVerifier creates the verification stage.
func NewVerifier(invoker model.Invoker) *Verifier {
	return &Verifier{invoker: invoker}
}

// Run executes one verification pass and reports the routing outcome.
func (v *Verifier) Run(ctx context.Context, s *task.State) (task.Outcome, error) {
	var out schema.VerifierOutput
	req := model.Request{
		System: verifierSystem,
		User:   renderVerifierInput(s.UserTask, s.ResearchNotes, s.DraftOutput),
	}
	if err := v.invoker.Invoke(ctx, req, &out); err != nil {
		return "", &StageError{Stage: task.StageVerifying, Err: err}
	}

	if out.Verdict == schema.VerdictPass {
		if err := s.Finalize(s.DraftOutput); err != nil {
			return "", &StageError{Stage: task.StageVerifying, Err: err}
		}
		s.LogEvent("verifier", "verified draft", "PASS")
		logging.Info().
			Add(logging.RunID(s.ID)).
			Add(logging.Stage(task.StageVerifying)).
			Add(logging.Verdict(string(out.Verdict))).
			Msg("draft verified")
		return task.OutcomePassed, nil
	}

	s.RecordVerifierFailure()
	summary := schema.IssueSummary(out.Issues)
	s.LogEvent("verifier", "verified draft", fmt.Sprintf("FAIL (%s)", summary))
	logging.Warn().
		Add(logging.RunID(s.ID)).
		Add(logging.Stage(task.StageVerifying)).
		Add(logging.Verdict(string(out.Verdict))).
		Add(logging.FailCount(s.VerifierFailCount)).
		Msg(summary)

	if s.RetriesExhausted() {
		if err := s.Finalize(safeFailureOutput); err != nil {
			return "", &StageError{Stage: task.StageVerifying, Err: err}
		}
		s.LogEvent("verifier", "stopped run", "max retries exceeded; returned safe failure")
		return task.OutcomeTerminalFailure, nil
	}

	return task.OutcomeRetryResearch, nil
}

// Route mirrors the orchestrator's conditional edge for observability:
// "end" once a final output exists or the budget is spent, "research"
// while a reroute is still legal. Kept in agreement with the Outcome
// switch by test.
func Route(s *task.State) string {
	if s.Terminal() {
		return "end"
	}
	if !s.RetriesExhausted() {
		return "research"
	}
	return "end"
}
