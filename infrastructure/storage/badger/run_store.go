package badger

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/domain/task"
)

// RunStore is a BadgerDB-backed implementation of run.Store.
type RunStore struct {
	db        *badger.DB
	keyPrefix string
}

// NewRunStore creates a new BadgerDB run store with the given configuration.
func NewRunStore(cfg Config, opts ...Option) (*RunStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	return &RunStore{db: db, keyPrefix: cfg.KeyPrefix}, nil
}

// NewRunStoreFromDB creates a run store from an existing BadgerDB database.
func NewRunStoreFromDB(db *badger.DB, keyPrefix string) *RunStore {
	return &RunStore{db: db, keyPrefix: keyPrefix}
}

// Key format: prefix + "runs:" + runID
func (s *RunStore) runKey(id string) []byte {
	return []byte(s.keyPrefix + "runs:" + id)
}

// Save persists a new run record.
func (s *RunStore) Save(ctx context.Context, st *task.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if st.ID == "" {
		return run.ErrInvalidRunID
	}

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	key := s.runKey(st.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return run.ErrRunExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

// Get retrieves a run record by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*task.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if id == "" {
		return nil, run.ErrInvalidRunID
	}

	var st task.State
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.runKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return run.ErrRunNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &st)
		})
	})
	if err != nil {
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

	key := s.runKey(id)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return run.ErrRunNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// List returns run records matching the filter. Filtering and ordering
// happen in memory after a prefix scan; run volumes are expected to be
// modest.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]*task.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	states, err := s.scan(filter)
	if err != nil {
		return nil, err
	}

	sortStates(states, filter)

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

	states, err := s.scan(filter)
	if err != nil {
		return 0, err
	}

	return int64(len(states)), nil
}

func (s *RunStore) scan(filter run.ListFilter) ([]*task.State, error) {
	var states []*task.State

	prefix := []byte(s.keyPrefix + "runs:")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var st task.State
				if err := json.Unmarshal(val, &st); err != nil {
					return nil // Skip malformed entries
				}
				if matchesFilter(&st, filter) {
					states = append(states, &st)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return states, nil
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

// Close closes the database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

var _ run.Store = (*RunStore)(nil)
