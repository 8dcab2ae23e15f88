package application

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Case is one evaluation scenario: a task to run and checks against the
// resulting deliverable.
type Case struct {
	ID     string `json:"id"`
	Task   string `json:"task"`
	Checks Checks `json:"checks"`
}

// Checks are the assertions applied to a case's output. All phrase
// matching is case-insensitive.
type Checks struct {
	MustInclude        []string `json:"must_include,omitempty"`
	MustNotInclude     []string `json:"must_not_include,omitempty"`
	MustIncludeAny     []string `json:"must_include_any,omitempty"`
	MaxWords           int      `json:"max_words,omitempty"`
	MustReturnNotFound bool     `json:"must_return_not_found,omitempty"`
}

// CaseResult is the outcome of evaluating one case.
type CaseResult struct {
	ID            string
	Passed        bool
	Failures      []string
	OutputPreview string
}

// SuiteResult aggregates the case results.
type SuiteResult struct {
	Results []CaseResult
	Passed  int
	Total   int
}

// AllPassed reports whether every case passed.
func (r SuiteResult) AllPassed() bool {
	return r.Passed == r.Total
}

const previewLen = 300

var wordPattern = regexp.MustCompile(`\w+`)

// LoadCases reads a JSON array of cases from a file.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}

	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases: %w", err)
	}

	return cases, nil
}

// EvaluateOutput applies the checks to a deliverable and returns the
// failures, empty on a clean pass.
func (c Checks) EvaluateOutput(output string) []string {
	var failures []string
	lower := strings.ToLower(output)

	for _, phrase := range c.MustInclude {
		if !strings.Contains(lower, strings.ToLower(phrase)) {
			failures = append(failures, fmt.Sprintf("missing required phrase: %q", phrase))
		}
	}

	for _, phrase := range c.MustNotInclude {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			failures = append(failures, fmt.Sprintf("contains forbidden phrase: %q", phrase))
		}
	}

	if len(c.MustIncludeAny) > 0 {
		found := false
		for _, phrase := range c.MustIncludeAny {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				found = true
				break
			}
		}
		if !found {
			failures = append(failures, fmt.Sprintf("must include at least one of: %v", c.MustIncludeAny))
		}
	}

	if c.MaxWords > 0 {
		if wc := WordCount(output); wc > c.MaxWords {
			failures = append(failures, fmt.Sprintf("word count exceeded: %d > %d", wc, c.MaxWords))
		}
	}

	if c.MustReturnNotFound {
		if !strings.Contains(lower, "not found in sources") && !strings.Contains(lower, "not documented") {
			failures = append(failures, "expected not-found-in-sources behavior")
		}
	}

	return failures
}

// WordCount counts word tokens the same way the checks do.
func WordCount(text string) int {
	return len(wordPattern.FindAllString(text, -1))
}

// RunSuite runs every case through the pipeline and evaluates the
// deliverables. A run error fails its case rather than the suite; the
// only error returned is context cancellation.
func RunSuite(ctx context.Context, p *Pipeline, cases []Case) (SuiteResult, error) {
	result := SuiteResult{Total: len(cases)}

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		cr := CaseResult{ID: c.ID}

		state, err := p.Run(ctx, c.Task)
		if err != nil {
			cr.Failures = []string{fmt.Sprintf("run failed: %v", err)}
			result.Results = append(result.Results, cr)
			continue
		}

		output := state.FinalOutput
		if output == "" {
			output = state.DraftOutput
		}

		cr.Failures = c.Checks.EvaluateOutput(output)
		cr.Passed = len(cr.Failures) == 0
		if r := []rune(output); len(r) > previewLen {
			cr.OutputPreview = string(r[:previewLen])
		} else {
			cr.OutputPreview = output
		}

		if cr.Passed {
			result.Passed++
		}
		result.Results = append(result.Results, cr)
	}

	return result, nil
}
