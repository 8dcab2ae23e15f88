// Package schema declares the structured output contracts for each
// model-backed stage. A model invocation either yields a value of one of
// these shapes or fails schema validation; nothing downstream ever parses
// free-form model text.
package schema

import (
	"fmt"
	"strings"
)

// MaxPlanSteps bounds the accepted plan length. The prompt asks for 3-6
// steps; validation only rejects degenerate shapes.
const MaxPlanSteps = 12

// PlanOutput is the planner's contract: an ordered step list.
type PlanOutput struct {
	Steps []string `json:"steps"`
}

// Validate implements the schema contract for PlanOutput.
func (p PlanOutput) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: plan has no steps", ErrInvalidOutput)
	}
	if len(p.Steps) > MaxPlanSteps {
		return fmt.Errorf("%w: plan has %d steps, max %d", ErrInvalidOutput, len(p.Steps), MaxPlanSteps)
	}
	for i, s := range p.Steps {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: plan step %d is empty", ErrInvalidOutput, i)
		}
	}
	return nil
}

// ExtractedFact is one candidate fact from the researcher model, citing
// passages by index into the presented source list. Indices are untrusted
// until resolved against the actually-retrieved passages.
type ExtractedFact struct {
	Fact      string `json:"fact"`
	Citations []int  `json:"citations"`
}

// ResearchStatus values the researcher model may declare. The declared
// status is advisory: the validated citation coverage owns the final call.
const (
	ResearchStatusOK       = "ok"
	ResearchStatusNotFound = "not_found"
)

// ResearchOutput is the researcher's contract.
type ResearchOutput struct {
	Status string          `json:"status"`
	Facts  []ExtractedFact `json:"facts"`
}

// Validate implements the schema contract for ResearchOutput.
func (r ResearchOutput) Validate() error {
	if r.Status != ResearchStatusOK && r.Status != ResearchStatusNotFound {
		return fmt.Errorf("%w: research status %q", ErrInvalidOutput, r.Status)
	}
	return nil
}

// WriterOutput is the writer's contract: a single Markdown deliverable.
type WriterOutput struct {
	DraftMarkdown string `json:"draft_markdown"`
}

// Validate implements the schema contract for WriterOutput.
func (w WriterOutput) Validate() error {
	if strings.TrimSpace(w.DraftMarkdown) == "" {
		return fmt.Errorf("%w: empty draft", ErrInvalidOutput)
	}
	return nil
}

// Verdict is the verifier's pass/fail judgment.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// IsValid returns true if the verdict is a recognized value.
func (v Verdict) IsValid() bool {
	return v == VerdictPass || v == VerdictFail
}

// Severity grades a verification issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// IsValid returns true if the severity is a recognized value.
func (s Severity) IsValid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// Issue is one itemized problem found by the verifier.
type Issue struct {
	Issue    string   `json:"issue"`
	Severity Severity `json:"severity"`
}

// VerifierOutput is the verifier's contract.
type VerifierOutput struct {
	Verdict   Verdict `json:"verdict"`
	Issues    []Issue `json:"issues"`
	Rationale string  `json:"rationale"`
}

// Validate implements the schema contract for VerifierOutput.
func (v VerifierOutput) Validate() error {
	if !v.Verdict.IsValid() {
		return fmt.Errorf("%w: verdict %q", ErrInvalidOutput, v.Verdict)
	}
	for i, issue := range v.Issues {
		if !issue.Severity.IsValid() {
			return fmt.Errorf("%w: issue %d severity %q", ErrInvalidOutput, i, issue.Severity)
		}
	}
	return nil
}

// IssueSummary joins issues as "severity: issue" pairs for audit logging.
// An empty list yields "unspecified issues".
func IssueSummary(issues []Issue) string {
	if len(issues) == 0 {
		return "unspecified issues"
	}
	parts := make([]string, 0, len(issues))
	for _, i := range issues {
		parts = append(parts, fmt.Sprintf("%s: %s", i.Severity, i.Issue))
	}
	return strings.Join(parts, "; ")
}
