package application

import (
	"context"

	"github.com/felixgeelhaar/groundwork/domain/schema"
	"github.com/felixgeelhaar/groundwork/domain/task"
	"github.com/felixgeelhaar/groundwork/infrastructure/logging"
	"github.com/felixgeelhaar/groundwork/infrastructure/model"
)

// Writer produces the Markdown deliverable from the research notes.
// Missing grounding short-circuits to a fixed insufficient-evidence draft
// without consulting the model, so the pipeline can never hallucinate
// content when there is nothing to ground it.
type Writer struct {
	invoker model.Invoker
}

// NewWriter creates the writing stage.
func NewWriter(invoker model.Invoker) *Writer {
	return &Writer{invoker: invoker}
}

// Run executes one writing pass, overwriting the draft.
func (w *Writer) Run(ctx context.Context, s *task.State) error {
	if s.ResearchNotes == nil || !s.ResearchNotes.Grounded() {
		s.DraftOutput = insufficientEvidenceDraft
		s.LogEvent("writer", "drafted deliverable", "insufficient research")
		logging.Info().
			Add(logging.RunID(s.ID)).
			Add(logging.Stage(task.StageWriting)).
			Msg("insufficient research, fixed draft emitted")
		return nil
	}

	var out schema.WriterOutput
	req := model.Request{
		System: writerSystem,
		User:   renderWriterInput(s.UserTask, s.Plan, *s.ResearchNotes),
	}
	if err := w.invoker.Invoke(ctx, req, &out); err != nil {
		return &StageError{Stage: task.StageWriting, Err: err}
	}

	s.DraftOutput = out.DraftMarkdown
	s.LogEvent("writer", "drafted deliverable", "markdown draft created")

	return nil
}
