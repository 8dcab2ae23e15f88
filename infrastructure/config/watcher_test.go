package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, path, name string) {
	t.Helper()
	content := `name: ` + name + `
model:
  provider: openai
  model: gpt-4o-mini
retrieval:
  backend: memory
  top_k: 7
verifier:
  max_retries: 2
resilience:
  max_attempts: 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	writeConfigFile(t, path, "before")

	reloaded := make(chan *PipelineConfig, 1)
	w, err := NewWatcher(path, func(cfg *PipelineConfig) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Give the watcher a moment to register before mutating the file.
	time.Sleep(50 * time.Millisecond)
	writeConfigFile(t, path, "after")

	select {
	case cfg := <-reloaded:
		if cfg.Name != "after" {
			t.Errorf("reloaded name = %q, want after", cfg.Name)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_InvalidReloadKeepsOldConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	writeConfigFile(t, path, "valid")

	reloaded := make(chan *PipelineConfig, 1)
	failures := make(chan error, 1)
	w, err := NewWatcher(path,
		func(cfg *PipelineConfig) {
			select {
			case reloaded <- cfg:
			default:
			}
		},
		WithDebounce(20*time.Millisecond),
		WithErrorHandler(func(err error) {
			select {
			case failures <- err:
			default:
			}
		}),
	)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("model:\n  provider: nonsense\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	select {
	case err := <-failures:
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected validation error, got %v", err)
		}
	case cfg := <-reloaded:
		t.Fatalf("invalid config was accepted: %+v", cfg)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
}

func TestNewWatcher_RequiresCallback(t *testing.T) {
	t.Parallel()

	if _, err := NewWatcher("pipeline.yaml", nil); err == nil {
		t.Fatal("expected error without callback")
	}
}
