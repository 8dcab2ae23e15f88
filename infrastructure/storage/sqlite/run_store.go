package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/domain/task"
)

// RunStore is a SQLite-backed implementation of run.Store.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new SQLite run store with the given configuration.
func NewRunStore(cfg Config, opts ...Option) (*RunStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &RunStore{db: db}

	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// NewRunStoreFromDB creates a run store from an existing database connection.
func NewRunStoreFromDB(db *sql.DB) (*RunStore, error) {
	s := &RunStore{db: db}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// migrate creates the runs table if it doesn't exist.
func (s *RunStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			user_task TEXT NOT NULL,
			stage TEXT NOT NULL,
			terminal INTEGER NOT NULL,
			data BLOB NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
		CREATE INDEX IF NOT EXISTS idx_runs_start_time ON runs(start_time);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
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

	var endTime sql.NullInt64
	if !st.EndTime.IsZero() {
		endTime = sql.NullInt64{Int64: st.EndTime.Unix(), Valid: true}
	}

	terminal := 0
	if st.Terminal() {
		terminal = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, user_task, stage, terminal, data, start_time, end_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.UserTask, string(st.CurrentStage), terminal,
		data, st.StartTime.Unix(), endTime, time.Now().Unix(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return run.ErrRunExists
		}
		return err
	}

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

	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM runs WHERE id = ?",
		id,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, run.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	var st task.State
	if err := json.Unmarshal(data, &st); err != nil {
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

	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return run.ErrRunNotFound
	}

	return nil
}

// List returns run records matching the filter.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]*task.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query, args := s.buildListQuery(filter, false)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var states []*task.State
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var st task.State
		if err := json.Unmarshal(data, &st); err != nil {
			continue // Skip malformed entries
		}

		states = append(states, &st)
	}

	return states, rows.Err()
}

// Count returns the number of run records matching the filter.
func (s *RunStore) Count(ctx context.Context, filter run.ListFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	query, args := s.buildListQuery(filter, true)

	var count int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// buildListQuery builds the SQL query for listing run records.
func (s *RunStore) buildListQuery(filter run.ListFilter, countOnly bool) (string, []interface{}) {
	var query string
	if countOnly {
		query = "SELECT COUNT(*) FROM runs"
	} else {
		query = "SELECT data FROM runs"
	}

	where, args := s.buildWhereClause(filter)

	if where != "" {
		query += " WHERE " + where
	}

	if !countOnly {
		orderBy := "start_time"
		switch filter.OrderBy {
		case run.OrderByEndTime:
			orderBy = "end_time"
		case run.OrderByID:
			orderBy = "id"
		}

		query += " ORDER BY " + orderBy
		if filter.Descending {
			query += " DESC"
		}

		if filter.Limit > 0 {
			query += " LIMIT ?"
			args = append(args, filter.Limit)
		}

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	return query, args
}

// buildWhereClause builds the WHERE clause for filtering.
func (s *RunStore) buildWhereClause(filter run.ListFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.TerminalOnly {
		conditions = append(conditions, "terminal = 1")
	}

	if filter.TaskPattern != "" {
		conditions = append(conditions, "user_task LIKE ?")
		args = append(args, "%"+filter.TaskPattern+"%")
	}

	if !filter.FromTime.IsZero() {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, filter.FromTime.Unix())
	}

	if !filter.ToTime.IsZero() {
		conditions = append(conditions, "start_time <= ?")
		args = append(args, filter.ToTime.Unix())
	}

	return strings.Join(conditions, " AND "), args
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *RunStore) DB() *sql.DB {
	return s.db
}

// isUniqueViolation checks if the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ run.Store = (*RunStore)(nil)
