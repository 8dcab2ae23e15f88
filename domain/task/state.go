package task

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries is the default verifier retry budget.
const DefaultMaxRetries = 2

// LogEntry is one append-only audit record. One or more entries are
// written per stage invocation; entries are never rewritten.
type LogEntry struct {
	Timestamp string `json:"timestamp"` // RFC3339, UTC
	Stage     string `json:"stage"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
}

// NewLogEntry creates a log entry stamped with the current UTC time.
func NewLogEntry(stage, action, outcome string) LogEntry {
	return LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Stage:     stage,
		Action:    action,
		Outcome:   outcome,
	}
}

// State is the single mutable record threaded through every stage.
// It is the aggregate root for a pipeline run: the orchestrator owns it
// for the duration of one run and no stage holds a reference beyond its
// own turn. Execution within a run is strictly sequential, so the record
// carries no locking.
type State struct {
	ID       string `json:"id"`
	UserTask string `json:"user_task"`

	// Plan is written once by the planner and read-only thereafter.
	Plan []string `json:"plan"`

	// ResearchNotes may be overwritten on each retry loop iteration.
	ResearchNotes *ResearchNotes `json:"research_notes,omitempty"`

	// DraftOutput is rewritten by the writer on every pass.
	DraftOutput string `json:"draft_output,omitempty"`

	// FinalOutput is written exactly once; non-empty means the run is over.
	FinalOutput string `json:"final_output,omitempty"`

	// Citations is the flattened view of all citations in ResearchNotes,
	// rebuilt on each research pass.
	Citations []Citation `json:"citations"`

	// Log is the append-only audit trail for the run.
	Log []LogEntry `json:"agent_log"`

	VerifierFailCount  int `json:"verifier_fail_count"`
	VerifierMaxRetries int `json:"verifier_max_retries"`

	// Meta carries cross-cutting run configuration; immutable after creation.
	Meta map[string]any `json:"meta,omitempty"`

	CurrentStage Stage     `json:"current_stage"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time,omitempty"`
}

// New creates a fresh run state for a user task.
func New(userTask string, meta map[string]any) *State {
	if meta == nil {
		meta = make(map[string]any)
	}
	return &State{
		ID:                 uuid.NewString(),
		UserTask:           userTask,
		Plan:               []string{},
		Citations:          []Citation{},
		Log:                []LogEntry{},
		VerifierMaxRetries: DefaultMaxRetries,
		Meta:               meta,
		CurrentStage:       StagePlanning,
		StartTime:          time.Now(),
	}
}

// LogEvent appends an audit entry for a stage.
func (s *State) LogEvent(stage, action, outcome string) {
	s.Log = append(s.Log, NewLogEntry(stage, action, outcome))
}

// SetPlan writes the plan. The plan is write-once: a second call returns
// ErrPlanAlreadySet.
func (s *State) SetPlan(steps []string) error {
	if len(s.Plan) > 0 {
		return ErrPlanAlreadySet
	}
	if len(steps) == 0 {
		return ErrEmptyPlan
	}
	s.Plan = steps
	return nil
}

// SetResearchNotes stores the notes from a research pass and rebuilds the
// flattened citation list.
func (s *State) SetResearchNotes(notes ResearchNotes) {
	s.ResearchNotes = &notes
	s.Citations = notes.FlattenCitations()
}

// Grounded returns true if the current research notes carry cited facts.
func (s *State) Grounded() bool {
	return s.ResearchNotes != nil && s.ResearchNotes.Grounded()
}

// Finalize writes the final output. It is write-once: presence of a final
// output is the run's termination signal, so a second write returns
// ErrAlreadyFinal.
func (s *State) Finalize(output string) error {
	if s.FinalOutput != "" {
		return ErrAlreadyFinal
	}
	if output == "" {
		return ErrEmptyFinalOutput
	}
	s.FinalOutput = output
	s.EndTime = time.Now()
	return nil
}

// Terminal returns true once the final output has been written.
func (s *State) Terminal() bool {
	return s.FinalOutput != ""
}

// RecordVerifierFailure increments the fail counter and returns the new count.
func (s *State) RecordVerifierFailure() int {
	s.VerifierFailCount++
	return s.VerifierFailCount
}

// RetriesExhausted returns true once the fail count exceeds the budget.
func (s *State) RetriesExhausted() bool {
	return s.VerifierFailCount > s.VerifierMaxRetries
}

// TransitionTo updates the current stage marker.
func (s *State) TransitionTo(stage Stage) {
	s.CurrentStage = stage
}

// Duration returns the elapsed time of the run.
func (s *State) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// LogEntriesFor returns the audit entries written by one stage, in order.
func (s *State) LogEntriesFor(stage string) []LogEntry {
	entries := make([]LogEntry, 0)
	for _, e := range s.Log {
		if e.Stage == stage {
			entries = append(entries, e)
		}
	}
	return entries
}
