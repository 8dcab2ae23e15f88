package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	t.Parallel()

	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, span := p.StartRun(context.Background(), "run-1", "summarize onboarding")
	if ctx == nil {
		t.Fatal("StartRun() returned nil context")
	}
	EndStage(span, "passed", nil)

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestEnabledProviderExportsSpans(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := Config{
		ServiceName:    "groundwork-test",
		ServiceVersion: "0.0.1",
		Enabled:        true,
		Writer:         &buf,
	}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, root := p.StartRun(context.Background(), "run-2", "task")
	_, stage := p.StartStage(ctx, "planning", "run-2")
	EndStage(stage, "ok", nil)
	EndStage(root, "passed", nil)

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "pipeline.stage.planning") {
		t.Errorf("exported spans missing stage span: %s", out)
	}
	if !strings.Contains(out, "pipeline.run") {
		t.Errorf("exported spans missing root span: %s", out)
	}
}

func TestEndStageRecordsError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p, err := New(Config{ServiceName: "t", Enabled: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, span := p.StartStage(context.Background(), "verifying", "run-3")
	EndStage(span, "terminal_failure", errors.New("verification failed"))

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "verification failed") {
		t.Errorf("exported span missing recorded error: %s", buf.String())
	}
}
