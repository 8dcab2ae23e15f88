package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/domain/task"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()

	cfg := DefaultConfig()
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "runs.db")

	store, err := NewRunStore(cfg)
	if err != nil {
		t.Fatalf("NewRunStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func newTerminalState(t *testing.T, userTask string) *task.State {
	t.Helper()
	st := task.New(userTask, nil)
	if err := st.Finalize("# Result\n\ndone"); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	return st
}

func TestRunStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	st := newTerminalState(t, "summarize expense policy")
	st.LogEvent("planner", "plan", "created plan")

	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, st.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserTask != st.UserTask {
		t.Errorf("UserTask = %q, want %q", got.UserTask, st.UserTask)
	}
	if got.FinalOutput != st.FinalOutput {
		t.Errorf("FinalOutput = %q, want %q", got.FinalOutput, st.FinalOutput)
	}
	if len(got.Log) != len(st.Log) {
		t.Errorf("Log length = %d, want %d", len(got.Log), len(st.Log))
	}
}

func TestRunStoreDuplicateSave(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	st := newTerminalState(t, "task")
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, st); !errors.Is(err, run.ErrRunExists) {
		t.Errorf("Save() error = %v, want ErrRunExists", err)
	}
}

func TestRunStoreNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, run.ErrRunNotFound) {
		t.Errorf("Get() error = %v, want ErrRunNotFound", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, run.ErrRunNotFound) {
		t.Errorf("Delete() error = %v, want ErrRunNotFound", err)
	}
}

func TestRunStoreDelete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	st := newTerminalState(t, "task")
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, st.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, st.ID); !errors.Is(err, run.ErrRunNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrRunNotFound", err)
	}
}

func TestRunStoreListAndCount(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	finished := newTerminalState(t, "write the vacation policy summary")
	finished.StartTime = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, finished); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	running := task.New("collect receipts", nil)
	running.StartTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, running); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	t.Run("all", func(t *testing.T) {
		got, err := store.List(ctx, run.ListFilter{OrderBy: run.OrderByStartTime})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("List() = %d records, want 2", len(got))
		}
		if got[0].ID != running.ID {
			t.Error("List() not ordered by start time ascending")
		}
	})

	t.Run("terminal only", func(t *testing.T) {
		got, err := store.List(ctx, run.ListFilter{TerminalOnly: true})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != finished.ID {
			t.Errorf("List(TerminalOnly) = %d records, want the finished run", len(got))
		}
	})

	t.Run("task pattern", func(t *testing.T) {
		n, err := store.Count(ctx, run.ListFilter{TaskPattern: "vacation"})
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 1 {
			t.Errorf("Count(TaskPattern) = %d, want 1", n)
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := store.List(ctx, run.ListFilter{OrderBy: run.OrderByStartTime, Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != finished.ID {
			t.Error("List() pagination returned wrong record")
		}
	})

	t.Run("time window", func(t *testing.T) {
		n, err := store.Count(ctx, run.ListFilter{
			FromTime: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 1 {
			t.Errorf("Count(FromTime) = %d, want 1", n)
		}
	})
}

func TestRunStoreInvalidID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &task.State{}); !errors.Is(err, run.ErrInvalidRunID) {
		t.Errorf("Save() error = %v, want ErrInvalidRunID", err)
	}
	if _, err := store.Get(ctx, ""); !errors.Is(err, run.ErrInvalidRunID) {
		t.Errorf("Get() error = %v, want ErrInvalidRunID", err)
	}
}
