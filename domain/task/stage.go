// Package task provides the core domain model for the document pipeline.
package task

// Stage represents a position in the pipeline's execution.
// Stages are identified by stable strings, not behavioral definitions.
type Stage string

// Canonical stages of a pipeline run.
const (
	StagePlanning    Stage = "planning"    // Produce the step list
	StageResearching Stage = "researching" // Retrieve evidence and extract cited facts
	StageWriting     Stage = "writing"     // Synthesize the draft from research notes
	StageVerifying   Stage = "verifying"   // Judge the draft's grounding
	StageDone        Stage = "done"        // Terminal; final output populated
	StageFailed      Stage = "failed"      // Terminal; a collaborator failed fatally
)

// IsTerminal returns true if this is a terminal stage (done or failed).
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// IsValid returns true if the stage is a recognized canonical stage.
func (s Stage) IsValid() bool {
	switch s {
	case StagePlanning, StageResearching, StageWriting, StageVerifying, StageDone, StageFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// AllStages returns all canonical stages.
func AllStages() []Stage {
	return []Stage{
		StagePlanning,
		StageResearching,
		StageWriting,
		StageVerifying,
		StageDone,
		StageFailed,
	}
}
