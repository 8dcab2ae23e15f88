package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/groundwork/domain/evidence"
	"github.com/felixgeelhaar/groundwork/domain/schema"
	"github.com/felixgeelhaar/groundwork/domain/task"
	"github.com/felixgeelhaar/groundwork/infrastructure/logging"
	"github.com/felixgeelhaar/groundwork/infrastructure/model"
)

// DefaultTopK is the evidence breadth for one research pass.
const DefaultTopK = 7

// Researcher retrieves evidence and extracts cited facts from it. The
// notes status is owned by validated citation coverage: the model's
// self-reported status can demote a result to not_found but never promote
// uncited facts to ok.
type Researcher struct {
	invoker   model.Invoker
	retriever evidence.Retriever
	topK      int
}

// NewResearcher creates the research stage.
func NewResearcher(invoker model.Invoker, retriever evidence.Retriever, topK int) *Researcher {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Researcher{invoker: invoker, retriever: retriever, topK: topK}
}

// Run executes one research pass, overwriting the notes and citations.
func (r *Researcher) Run(ctx context.Context, s *task.State) error {
	passages, err := r.retriever.Retrieve(ctx, s.UserTask, r.topK)
	if err != nil {
		return &StageError{Stage: task.StageResearching, Err: fmt.Errorf("retrieval: %w", err)}
	}

	if len(passages) == 0 {
		// No evidence: no model call, notes collapse to not_found.
		s.SetResearchNotes(task.NotFoundNotes())
		s.LogEvent("researcher", "retrieved sources", "0 docs; not found")
		logging.Info().
			Add(logging.RunID(s.ID)).
			Add(logging.Stage(task.StageResearching)).
			Add(logging.DocCount(0)).
			Msg("no evidence retrieved")
		return nil
	}

	var out schema.ResearchOutput
	req := model.Request{
		System: researcherSystem,
		User:   renderResearcherInput(s.UserTask, s.Plan, passages),
	}
	if err := r.invoker.Invoke(ctx, req, &out); err != nil {
		return &StageError{Stage: task.StageResearching, Err: err}
	}

	if out.Status != schema.ResearchStatusOK || len(out.Facts) == 0 {
		s.SetResearchNotes(task.NotFoundNotes())
		s.LogEvent("researcher", "extracted facts", "not found in sources")
		return nil
	}

	facts := resolveFacts(out.Facts, passages)
	if len(facts) == 0 {
		// Every candidate fact lost its citations during validation.
		s.SetResearchNotes(task.NotFoundNotes())
		s.LogEvent("researcher", "validated citations", "no valid cited facts; not found")
		return nil
	}

	s.SetResearchNotes(task.NewResearchNotes(facts))
	s.LogEvent("researcher", "produced research notes", fmt.Sprintf("%d cited facts", len(facts)))
	logging.Info().
		Add(logging.RunID(s.ID)).
		Add(logging.Stage(task.StageResearching)).
		Add(logging.DocCount(len(passages))).
		Add(logging.FactCount(len(facts))).
		Msg("research notes produced")

	return nil
}

// resolveFacts converts model-declared citation indices into citations
// built from the actually-retrieved passages. Out-of-range indices are
// silently dropped; a fact that loses all its citations is dropped with
// them.
func resolveFacts(extracted []schema.ExtractedFact, passages []evidence.Passage) []task.Fact {
	var facts []task.Fact
	for _, ef := range extracted {
		var cites []task.Citation
		for _, idx := range ef.Citations {
			if idx < 0 || idx >= len(passages) {
				continue
			}
			p := passages[idx]
			cites = append(cites, task.Citation{
				DocID:    p.DocID,
				Location: p.Location,
				Snippet:  p.Snippet(task.SnippetMaxLen),
			})
		}
		f, err := task.NewFact(ef.Fact, cites)
		if err != nil {
			continue
		}
		facts = append(facts, f)
	}
	return facts
}
