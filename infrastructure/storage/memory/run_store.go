// Package memory provides in-memory implementations of storage interfaces.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/domain/task"
)

// runEntry holds a deep copy of a run record for storage.
type runEntry struct {
	data []byte
}

// RunStore is an in-memory implementation of run.Store.
type RunStore struct {
	runs map[string]*runEntry
	mu   sync.RWMutex
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*runEntry),
	}
}

// Save persists a new run record.
func (s *RunStore) Save(ctx context.Context, st *task.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if st.ID == "" {
		return run.ErrInvalidRunID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[st.ID]; exists {
		return run.ErrRunExists
	}

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	s.runs[st.ID] = &runEntry{data: data}
	return nil
}

// Get retrieves a run record by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*task.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if id == "" {
		return nil, run.ErrInvalidRunID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.runs[id]
	if !ok {
		return nil, run.ErrRunNotFound
	}

	var st task.State
	if err := json.Unmarshal(entry.data, &st); err != nil {
		return nil, err
	}

	return &st, nil
}

// Delete removes a run record by ID.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if id == "" {
		return run.ErrInvalidRunID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[id]; !exists {
		return run.ErrRunNotFound
	}

	delete(s.runs, id)
	return nil
}

// List returns run records matching the filter.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]*task.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var states []*task.State
	for _, entry := range s.runs {
		var st task.State
		if err := json.Unmarshal(entry.data, &st); err != nil {
			continue // Skip malformed entries
		}
		if !matchesFilter(&st, filter) {
			continue
		}
		states = append(states, &st)
	}

	sortStates(states, filter)

	// Apply pagination after sorting.
	if filter.Offset > 0 {
		if filter.Offset >= len(states) {
			return []*task.State{}, nil
		}
		states = states[filter.Offset:]
	}
	if filter.Limit > 0 && len(states) > filter.Limit {
		states = states[:filter.Limit]
	}

	return states, nil
}

// Count returns the number of run records matching the filter.
func (s *RunStore) Count(ctx context.Context, filter run.ListFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, entry := range s.runs {
		var st task.State
		if err := json.Unmarshal(entry.data, &st); err != nil {
			continue
		}
		if matchesFilter(&st, filter) {
			count++
		}
	}

	return count, nil
}

func matchesFilter(st *task.State, filter run.ListFilter) bool {
	if filter.TerminalOnly && !st.Terminal() {
		return false
	}
	if filter.TaskPattern != "" && !strings.Contains(st.UserTask, filter.TaskPattern) {
		return false
	}
	if !filter.FromTime.IsZero() && st.StartTime.Before(filter.FromTime) {
		return false
	}
	if !filter.ToTime.IsZero() && st.StartTime.After(filter.ToTime) {
		return false
	}
	return true
}

func sortStates(states []*task.State, filter run.ListFilter) {
	less := func(i, j int) bool {
		switch filter.OrderBy {
		case run.OrderByEndTime:
			return states[i].EndTime.Before(states[j].EndTime)
		case run.OrderByID:
			return states[i].ID < states[j].ID
		default:
			return states[i].StartTime.Before(states[j].StartTime)
		}
	}

	if filter.Descending {
		sort.SliceStable(states, func(i, j int) bool { return less(j, i) })
	} else {
		sort.SliceStable(states, less)
	}
}

var _ run.Store = (*RunStore)(nil)
