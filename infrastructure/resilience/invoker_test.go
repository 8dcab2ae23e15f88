package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/groundwork/infrastructure/model"
)

// flakyInvoker fails a fixed number of times before succeeding.
type flakyInvoker struct {
	failures int32
	err      error
	calls    atomic.Int32
}

func (f *flakyInvoker) Invoke(_ context.Context, _ model.Request, _ any) error {
	n := f.calls.Add(1)
	if n <= f.failures {
		return f.err
	}
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	return cfg
}

func TestInvokerSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	inner := &flakyInvoker{}
	inv := NewInvoker(inner, testConfig())

	if err := inv.Invoke(context.Background(), model.Request{User: "hi"}, nil); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestInvokerRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	inner := &flakyInvoker{failures: 2, err: errors.New("connection reset")}
	inv := NewInvoker(inner, testConfig())

	if err := inv.Invoke(context.Background(), model.Request{User: "hi"}, nil); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got := inner.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestInvokerExhaustsAttempts(t *testing.T) {
	t.Parallel()

	inner := &flakyInvoker{failures: 10, err: errors.New("connection reset")}
	cfg := testConfig()
	cfg.MaxAttempts = 2
	inv := NewInvoker(inner, cfg)

	if err := inv.Invoke(context.Background(), model.Request{User: "hi"}, nil); err == nil {
		t.Fatal("Invoke() error = nil, want error after exhausted attempts")
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestInvokerSchemaViolationNotRetried(t *testing.T) {
	t.Parallel()

	violation := &model.SchemaViolationError{Raw: "not json", Err: errors.New("invalid character")}
	inner := &flakyInvoker{failures: 10, err: violation}
	inv := NewInvoker(inner, testConfig())

	err := inv.Invoke(context.Background(), model.Request{User: "hi"}, nil)
	if !errors.Is(err, model.ErrSchemaViolation) {
		t.Fatalf("Invoke() error = %v, want ErrSchemaViolation", err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (no retry)", got)
	}
}

func TestInvokerSchemaViolationRetriedWhenConfigured(t *testing.T) {
	t.Parallel()

	violation := &model.SchemaViolationError{Raw: "not json", Err: errors.New("invalid character")}
	inner := &flakyInvoker{failures: 1, err: violation}
	cfg := testConfig()
	cfg.RetrySchemaViolations = true
	inv := NewInvoker(inner, cfg)

	if err := inv.Invoke(context.Background(), model.Request{User: "hi"}, nil); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestInvokerCanceledContextNotRetried(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyInvoker{failures: 10, err: context.Canceled}
	inv := NewInvoker(inner, testConfig())

	err := inv.Invoke(ctx, model.Request{User: "hi"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Invoke() error = %v, want context.Canceled", err)
	}
}
