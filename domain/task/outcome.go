package task

// Outcome is the verifier's outward-visible result, consumed by the
// orchestrator's single conditional edge.
type Outcome string

const (
	// OutcomePassed means the draft was promoted to the final output.
	OutcomePassed Outcome = "passed"

	// OutcomeRetryResearch means the verdict was fail with retry budget
	// remaining; the run routes back to the researcher.
	OutcomeRetryResearch Outcome = "retry_research"

	// OutcomeTerminalFailure means the retry budget is exhausted and the
	// safe-failure deliverable became the final output.
	OutcomeTerminalFailure Outcome = "terminal_failure"
)

// IsValid returns true if the outcome is a recognized value.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomePassed, OutcomeRetryResearch, OutcomeTerminalFailure:
		return true
	default:
		return false
	}
}

// Terminal returns true if the outcome ends the run.
func (o Outcome) Terminal() bool {
	return o == OutcomePassed || o == OutcomeTerminalFailure
}

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}
