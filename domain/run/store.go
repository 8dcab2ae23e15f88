// Package run provides the domain interface for run persistence.
package run

import (
	"context"
	"time"

	"github.com/felixgeelhaar/groundwork/domain/task"
)

// Store defines the interface for persisting pipeline run records.
// Implementations may be in-memory, Badger, SQLite, or any other backend.
// Stored records are the serialized terminal TaskState; callers must not
// feed a stored record back into a new run.
type Store interface {
	// Save persists a new run record.
	Save(ctx context.Context, s *task.State) error

	// Get retrieves a run record by ID.
	Get(ctx context.Context, id string) (*task.State, error)

	// Delete removes a run record by ID.
	Delete(ctx context.Context, id string) error

	// List returns run records matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*task.State, error)

	// Count returns the number of run records matching the filter.
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

// ListFilter specifies criteria for listing run records.
type ListFilter struct {
	// TerminalOnly keeps only records with a final output.
	TerminalOnly bool

	// TaskPattern filters by user task text (substring match).
	TaskPattern string

	// FromTime filters runs started after this time.
	FromTime time.Time

	// ToTime filters runs started before this time.
	ToTime time.Time

	// Limit is the maximum number of records to return (0 = no limit).
	Limit int

	// Offset is the number of records to skip for pagination.
	Offset int

	// OrderBy specifies the sort order.
	OrderBy OrderBy

	// Descending reverses the sort order.
	Descending bool
}

// OrderBy specifies how to sort run records.
type OrderBy string

const (
	// OrderByStartTime sorts by run start time.
	OrderByStartTime OrderBy = "start_time"

	// OrderByEndTime sorts by run end time.
	OrderByEndTime OrderBy = "end_time"

	// OrderByID sorts by run ID.
	OrderByID OrderBy = "id"
)
