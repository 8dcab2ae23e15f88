package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/domain/task"
)

// RunStore is a Redis-backed implementation of run.Store. Records are
// stored as JSON values under prefixed keys; list queries scan the key
// space and filter in memory, which is fine for the run volumes a
// single pipeline produces.
type RunStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRunStoreFromClient creates a run store over an existing client.
func NewRunStoreFromClient(client *redis.Client, keyPrefix string) *RunStore {
	return &RunStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// runKey builds the storage key for a run ID.
func (s *RunStore) runKey(id string) string {
	return s.keyPrefix + "runs:" + id
}

// Save persists a new run record.
func (s *RunStore) Save(ctx context.Context, st *task.State) error {
	if st.ID == "" {
		return run.ErrInvalidRunID
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	// Run records are immutable once saved, so there is no TTL and a
	// duplicate ID is a caller error rather than an overwrite.
	ok, err := s.client.SetNX(ctx, s.runKey(st.ID), data, 0).Result()
	if err != nil {
		return s.wrapError(err)
	}
	if !ok {
		return run.ErrRunExists
	}

	return nil
}

// Get retrieves a run record by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*task.State, error) {
	if id == "" {
		return nil, run.ErrInvalidRunID
	}

	data, err := s.client.Get(ctx, s.runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, run.ErrRunNotFound
		}
		return nil, s.wrapError(err)
	}

	var st task.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal run record: %w", err)
	}

	return &st, nil
}

// Delete removes a run record by ID.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return run.ErrInvalidRunID
	}

	deleted, err := s.client.Del(ctx, s.runKey(id)).Result()
	if err != nil {
		return s.wrapError(err)
	}
	if deleted == 0 {
		return run.ErrRunNotFound
	}

	return nil
}

// List returns run records matching the filter.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]*task.State, error) {
	states, err := s.scan(ctx, filter)
	if err != nil {
		return nil, err
	}

	sortStates(states, filter)

	if filter.Offset > 0 {
		if filter.Offset >= len(states) {
			return nil, nil
		}
		states = states[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(states) {
		states = states[:filter.Limit]
	}

	return states, nil
}

// Count returns the number of run records matching the filter.
func (s *RunStore) Count(ctx context.Context, filter run.ListFilter) (int64, error) {
	states, err := s.scan(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(states)), nil
}

// scan iterates the run key space and returns records matching the
// filter, before ordering and pagination.
func (s *RunStore) scan(ctx context.Context, filter run.ListFilter) ([]*task.State, error) {
	var states []*task.State

	iter := s.client.Scan(ctx, 0, s.keyPrefix+"runs:*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, s.wrapError(err)
		}

		var st task.State
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("unmarshal run record: %w", err)
		}
		if matchesFilter(&st, filter) {
			states = append(states, &st)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, s.wrapError(err)
	}

	return states, nil
}

// Close releases the underlying client.
func (s *RunStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RunStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(run.ErrConnectionFailed, err)
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
	sort.Slice(states, func(i, j int) bool {
		var less bool
		switch filter.OrderBy {
		case run.OrderByEndTime:
			less = states[i].EndTime.Before(states[j].EndTime)
		case run.OrderByID:
			less = states[i].ID < states[j].ID
		default:
			less = states[i].StartTime.Before(states[j].StartTime)
		}
		if filter.Descending {
			return !less
		}
		return less
	})
}

var _ run.Store = (*RunStore)(nil)
