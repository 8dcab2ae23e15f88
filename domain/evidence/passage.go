// Package evidence defines the retrieval contract consumed by the pipeline.
// Retrieval itself (indexing, embedding, ranking) is a collaborator concern;
// the pipeline only depends on ranked passages with provenance.
package evidence

import (
	"context"
	"strings"
)

// Passage is one retrieved unit of evidence with provenance.
type Passage struct {
	DocID    string `json:"doc_id"`
	Location string `json:"location"`
	Text     string `json:"text"`
}

// Snippet returns the passage text collapsed to a single line and
// truncated to at most max characters. Citations are built from this,
// never from model text.
func (p Passage) Snippet(max int) string {
	s := strings.Join(strings.Fields(p.Text), " ")
	if max > 0 {
		if runes := []rune(s); len(runes) > max {
			s = string(runes[:max])
		}
	}
	return strings.TrimSpace(s)
}

// Retriever returns ranked passages for a query. An empty result is a
// normal, non-error outcome; a hard failure wraps ErrUnavailable.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}
