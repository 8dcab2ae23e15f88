// Package postgres provides a PostgreSQL-backed run store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/domain/task"
)

// RunStore is a PostgreSQL-backed implementation of run.Store.
type RunStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewRunStore creates a new PostgreSQL run store.
func NewRunStore(pool *pgxpool.Pool, schema string) *RunStore {
	if schema == "" {
		schema = "public"
	}
	return &RunStore{
		pool:   pool,
		schema: schema,
	}
}

// Connect opens a connection pool and returns a store over it.
func Connect(ctx context.Context, dsn, schema string) (*RunStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Join(run.ErrConnectionFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(run.ErrConnectionFailed, err)
	}
	return NewRunStore(pool, schema), nil
}

// tableName returns the fully qualified table name.
func (s *RunStore) tableName() string {
	return fmt.Sprintf("%s.runs", s.schema)
}

// Migrate creates the runs table if it does not exist.
func (s *RunStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			user_task  TEXT NOT NULL,
			stage      TEXT NOT NULL,
			terminal   BOOLEAN NOT NULL,
			data       JSONB NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time   TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_runs_stage ON %s(stage);
		CREATE INDEX IF NOT EXISTS idx_runs_start_time ON %s(start_time);
	`, s.tableName(), s.tableName(), s.tableName())

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return s.wrapError(err)
	}
	return nil
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

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_task, stage, terminal, data, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.tableName())

	var endTime *time.Time
	if !st.EndTime.IsZero() {
		endTime = &st.EndTime
	}

	_, err = s.pool.Exec(ctx, query,
		st.ID,
		st.UserTask,
		string(st.CurrentStage),
		st.Terminal(),
		data,
		st.StartTime,
		endTime,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return run.ErrRunExists
		}
		return s.wrapError(err)
	}

	return nil
}

// Get retrieves a run record by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*task.State, error) {
	if id == "" {
		return nil, run.ErrInvalidRunID
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.tableName())

	var data []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableName())

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return s.wrapError(err)
	}

	if result.RowsAffected() == 0 {
		return run.ErrRunNotFound
	}

	return nil
}

// List returns run records matching the filter.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]*task.State, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	var states []*task.State
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, s.wrapError(err)
		}
		var st task.State
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("unmarshal run record: %w", err)
		}
		states = append(states, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}

	return states, nil
}

// Count returns the number of run records matching the filter.
func (s *RunStore) Count(ctx context.Context, filter run.ListFilter) (int64, error) {
	whereClause, args := s.buildWhereClause(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, s.tableName(), whereClause)

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, s.wrapError(err)
	}

	return count, nil
}

// buildListQuery constructs the SELECT query for listing runs.
func (s *RunStore) buildListQuery(filter run.ListFilter) (string, []any) {
	whereClause, args := s.buildWhereClause(filter)

	query := fmt.Sprintf(`SELECT data FROM %s %s`, s.tableName(), whereClause)

	orderBy := "start_time"
	switch filter.OrderBy {
	case run.OrderByEndTime:
		orderBy = "end_time"
	case run.OrderByID:
		orderBy = "id"
	}

	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}

	query += fmt.Sprintf(" ORDER BY %s %s NULLS LAST", orderBy, direction)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return query, args
}

// buildWhereClause constructs the WHERE clause from the filter.
func (s *RunStore) buildWhereClause(filter run.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.TerminalOnly {
		conditions = append(conditions, "terminal = TRUE")
	}

	if filter.TaskPattern != "" {
		args = append(args, "%"+filter.TaskPattern+"%")
		conditions = append(conditions, fmt.Sprintf("user_task ILIKE $%d", len(args)))
	}

	if !filter.FromTime.IsZero() {
		args = append(args, filter.FromTime)
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)))
	}

	if !filter.ToTime.IsZero() {
		args = append(args, filter.ToTime)
		conditions = append(conditions, fmt.Sprintf("start_time <= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// Close releases the connection pool.
func (s *RunStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// wrapError wraps database errors with domain errors.
func (s *RunStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(run.ErrConnectionFailed, err)
}

var _ run.Store = (*RunStore)(nil)
