package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/domain/task"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()

	store, err := NewRunStore(DefaultConfig(), WithInMemory())
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

	st := newTerminalState(t, "summarize security policy")
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, st.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserTask != st.UserTask || got.FinalOutput != st.FinalOutput {
		t.Errorf("Get() = %+v, want round-tripped state", got)
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

func TestRunStoreListFiltersAndOrder(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	finished := newTerminalState(t, "write the travel policy summary")
	finished.StartTime = time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, finished); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	running := task.New("collect receipts", nil)
	running.StartTime = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, running); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.List(ctx, run.ListFilter{OrderBy: run.OrderByStartTime})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != running.ID {
		t.Error("List() not ordered by start time ascending")
	}

	terminal, err := store.List(ctx, run.ListFilter{TerminalOnly: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(terminal) != 1 || terminal[0].ID != finished.ID {
		t.Errorf("List(TerminalOnly) = %d records, want the finished run", len(terminal))
	}

	n, err := store.Count(ctx, run.ListFilter{TaskPattern: "travel"})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count(TaskPattern) = %d, want 1", n)
	}
}

func TestRunStoreKeyPrefixIsolation(t *testing.T) {
	t.Parallel()

	store, err := NewRunStore(DefaultConfig(), WithInMemory(), WithKeyPrefix("tenant-a:"))
	if err != nil {
		t.Fatalf("NewRunStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	other := NewRunStoreFromDB(store.db, "tenant-b:")

	ctx := context.Background()
	st := newTerminalState(t, "task")
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := other.Get(ctx, st.ID); !errors.Is(err, run.ErrRunNotFound) {
		t.Errorf("Get() across prefixes error = %v, want ErrRunNotFound", err)
	}

	n, err := other.Count(ctx, run.ListFilter{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() across prefixes = %d, want 0", n)
	}
}
