package task

// NotesStatus reports whether a research pass produced any cited facts.
type NotesStatus string

const (
	// NotesOK means the facts list is non-empty.
	NotesOK NotesStatus = "ok"

	// NotesNotFound means the corpus held no usable evidence.
	NotesNotFound NotesStatus = "not_found"
)

// IsValid returns true if the status is a recognized value.
func (s NotesStatus) IsValid() bool {
	return s == NotesOK || s == NotesNotFound
}

// String returns the string representation of the status.
func (s NotesStatus) String() string {
	return string(s)
}

// ResearchNotes is the output of one research pass.
// Status and Facts can never disagree: the only constructors derive
// Status from the facts that survived citation validation.
type ResearchNotes struct {
	Status NotesStatus `json:"status"`
	Facts  []Fact      `json:"facts"`
}

// NewResearchNotes builds notes from validated facts. The status is
// derived from the fact count, not declared by a caller.
func NewResearchNotes(facts []Fact) ResearchNotes {
	if len(facts) == 0 {
		return NotFoundNotes()
	}
	return ResearchNotes{Status: NotesOK, Facts: facts}
}

// NotFoundNotes returns the canonical empty not-found notes.
func NotFoundNotes() ResearchNotes {
	return ResearchNotes{Status: NotesNotFound, Facts: []Fact{}}
}

// Grounded returns true if the notes carry at least one cited fact.
func (n ResearchNotes) Grounded() bool {
	return n.Status == NotesOK && len(n.Facts) > 0
}

// FlattenCitations returns every citation referenced by the facts, in order.
func (n ResearchNotes) FlattenCitations() []Citation {
	flat := make([]Citation, 0, len(n.Facts))
	for _, f := range n.Facts {
		flat = append(flat, f.Citations...)
	}
	return flat
}
