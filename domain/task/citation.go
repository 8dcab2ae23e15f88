package task

// SnippetMaxLen bounds the length of a citation snippet.
const SnippetMaxLen = 220

// Citation points at a specific retrieved passage. It is derived
// deterministically from the passage itself, never from model text.
type Citation struct {
	DocID    string `json:"doc_id"`
	Location string `json:"location"`
	Snippet  string `json:"snippet"`
}

// Fact is a single factual statement with the citations that ground it.
// A Fact without citations cannot be constructed.
type Fact struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// NewFact creates a fact from a statement and its citations.
// It returns ErrUncitedFact if no citations are given: uncited facts are
// dropped at construction time, not merely flagged downstream.
func NewFact(text string, citations []Citation) (Fact, error) {
	if len(citations) == 0 {
		return Fact{}, ErrUncitedFact
	}
	return Fact{Text: text, Citations: citations}, nil
}
