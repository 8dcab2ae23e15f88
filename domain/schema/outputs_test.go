package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestPlanOutput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		steps   []string
		wantErr bool
	}{
		{"empty", nil, true},
		{"blank step", []string{"research", "  "}, true},
		{"too many", make([]string, MaxPlanSteps+1), true},
		{"valid", []string{"research the docs", "draft", "verify"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := tt.steps
			if tt.name == "too many" {
				for i := range steps {
					steps[i] = "step"
				}
			}
			err := PlanOutput{Steps: steps}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidOutput) {
				t.Errorf("error %v should wrap ErrInvalidOutput", err)
			}
		})
	}
}

func TestResearchOutput_Validate(t *testing.T) {
	tests := []struct {
		status  string
		wantErr bool
	}{
		{ResearchStatusOK, false},
		{ResearchStatusNotFound, false},
		{"maybe", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			err := ResearchOutput{Status: tt.status}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriterOutput_Validate(t *testing.T) {
	if err := (WriterOutput{DraftMarkdown: "  \n"}).Validate(); err == nil {
		t.Error("blank draft should fail validation")
	}
	if err := (WriterOutput{DraftMarkdown: "## Deliverable"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestVerifierOutput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		out     VerifierOutput
		wantErr bool
	}{
		{"pass", VerifierOutput{Verdict: VerdictPass}, false},
		{"fail with issues", VerifierOutput{
			Verdict: VerdictFail,
			Issues:  []Issue{{Issue: "unsupported claim", Severity: SeverityHigh}},
		}, false},
		{"bad verdict", VerifierOutput{Verdict: "shrug"}, true},
		{"bad severity", VerifierOutput{
			Verdict: VerdictFail,
			Issues:  []Issue{{Issue: "x", Severity: "critical"}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.out.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIssueSummary(t *testing.T) {
	if got := IssueSummary(nil); got != "unspecified issues" {
		t.Errorf("IssueSummary(nil) = %q", got)
	}

	got := IssueSummary([]Issue{
		{Issue: "claim A has no citation", Severity: SeverityHigh},
		{Issue: "tone", Severity: SeverityLow},
	})
	want := "high: claim A has no citation; low: tone"
	if got != want {
		t.Errorf("IssueSummary() = %q, want %q", got, want)
	}
	if strings.Contains(got, "\n") {
		t.Error("summary should be single-line")
	}
}
