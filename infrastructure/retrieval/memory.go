// Package retrieval provides evidence.Retriever implementations: an HTTP
// adapter for a remote search service and an in-memory retriever for
// tests and small corpora.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/groundwork/domain/evidence"
)

// MemoryRetriever is an in-memory implementation of evidence.Retriever.
// Ranking is term overlap between the query and the passage text; it is
// deliberately simple, the pipeline treats ranking as a black box.
type MemoryRetriever struct {
	mu       sync.RWMutex
	passages []evidence.Passage
}

// NewMemoryRetriever creates an empty in-memory retriever.
func NewMemoryRetriever() *MemoryRetriever {
	return &MemoryRetriever{}
}

// Add indexes a passage.
func (r *MemoryRetriever) Add(docID, location, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passages = append(r.passages, evidence.Passage{DocID: docID, Location: location, Text: text})
}

// Len returns the number of indexed passages.
func (r *MemoryRetriever) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.passages)
}

// Retrieve implements evidence.Retriever.
func (r *MemoryRetriever) Retrieve(ctx context.Context, query string, k int) ([]evidence.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	terms := queryTerms(query)

	type scored struct {
		passage evidence.Passage
		score   int
		pos     int
	}

	hits := make([]scored, 0, len(r.passages))
	for i, p := range r.passages {
		s := overlap(terms, p.Text)
		if s > 0 {
			hits = append(hits, scored{passage: p, score: s, pos: i})
		}
	}

	// Stable order: score, then insertion order.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}

	result := make([]evidence.Passage, len(hits))
	for i, h := range hits {
		result[i] = h.passage
	}
	return result, nil
}

// queryTerms lowercases and splits a query into unique terms.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// overlap counts query terms present in the text.
func overlap(terms []string, text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			count++
		}
	}
	return count
}
