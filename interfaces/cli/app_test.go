package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/groundwork/infrastructure/retrieval"
)

func newTestApp() (*App, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	app := New().WithOutput(stdout, stderr)
	return app, stdout, stderr
}

func TestVersionCommand(t *testing.T) {
	app, stdout, _ := newTestApp()

	if err := app.ExecuteWithArgs(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "groundwork version") {
		t.Errorf("expected version banner, got %q", out)
	}
	if !strings.Contains(out, "Git commit:") {
		t.Errorf("expected git commit line, got %q", out)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	content := `name: test-pipeline
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

	app, stdout, _ := newTestApp()
	if err := app.ExecuteWithArgs(context.Background(), []string{"validate", "-c", path}); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "Configuration is valid") {
		t.Errorf("expected success message, got %q", out)
	}
	if !strings.Contains(out, "openai/gpt-4o-mini") {
		t.Errorf("expected model summary, got %q", out)
	}
}

func TestValidateCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	content := `model:
  provider: carrier-pigeon
  model: rock-dove
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	app, _, _ := newTestApp()
	err := app.ExecuteWithArgs(context.Background(), []string{"validate", "-c", path})
	if err == nil {
		t.Fatal("expected validation error for unknown provider")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateCommand_RequiresConfigFlag(t *testing.T) {
	app, _, _ := newTestApp()
	if err := app.ExecuteWithArgs(context.Background(), []string{"validate"}); err == nil {
		t.Fatal("expected error without --config")
	}
}

func TestRunCommand_RequiresTask(t *testing.T) {
	app, _, _ := newTestApp()
	if err := app.ExecuteWithArgs(context.Background(), []string{"run"}); err == nil {
		t.Fatal("expected error without a task argument")
	}
}

func TestEvalCommand_RequiresCasesFlag(t *testing.T) {
	app, _, _ := newTestApp()
	if err := app.ExecuteWithArgs(context.Background(), []string{"eval"}); err == nil {
		t.Fatal("expected error without --cases")
	}
}

func TestSeedCorpus(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "handbook.md")
	content := "Employees receive 15 vacation days per year.\n\nUnused days do not roll over.\n"
	if err := os.WriteFile(doc, []byte(content), 0o644); err != nil {
		t.Fatalf("writing doc: %v", err)
	}
	// Non-text files are skipped during directory walks.
	if err := os.WriteFile(filepath.Join(dir, "logo.png"), []byte{0x89}, 0o644); err != nil {
		t.Fatalf("writing binary: %v", err)
	}

	r := retrieval.NewMemoryRetriever()
	if err := seedCorpus(r, []string{dir}); err != nil {
		t.Fatalf("seedCorpus failed: %v", err)
	}

	if got := r.Len(); got != 2 {
		t.Fatalf("expected 2 passages, got %d", got)
	}

	passages, err := r.Retrieve(context.Background(), "vacation days", 5)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(passages) == 0 {
		t.Fatal("expected at least one passage")
	}
	if passages[0].DocID != "handbook.md" {
		t.Errorf("expected doc_id handbook.md, got %q", passages[0].DocID)
	}
	if passages[0].Location != "para 1" {
		t.Errorf("expected location para 1, got %q", passages[0].Location)
	}
}

func TestSeedCorpus_MissingPath(t *testing.T) {
	r := retrieval.NewMemoryRetriever()
	if err := seedCorpus(r, []string{"/nonexistent/docs"}); err == nil {
		t.Fatal("expected error for missing docs path")
	}
}

func TestLoadConfig_DefaultsWithoutPath(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Retrieval.TopK != 7 {
		t.Errorf("expected default top_k 7, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Verifier.MaxRetries != 2 {
		t.Errorf("expected default max_retries 2, got %d", cfg.Verifier.MaxRetries)
	}
}
