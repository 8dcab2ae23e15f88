package logging

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/groundwork/domain/task"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := bolt.NewJSONHandler(buf)
	logger := bolt.New(handler).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()

	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "console" {
		t.Errorf("Format = %s, want console", config.Format)
	}
	if config.Output != os.Stdout {
		t.Errorf("Output = %v, want os.Stdout", config.Output)
	}
}

func TestProductionConfig(t *testing.T) {
	t.Parallel()

	config := ProductionConfig()

	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "json" {
		t.Errorf("Format = %s, want json", config.Format)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO}, // Default
		{"", bolt.INFO},        // Empty defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFields(t *testing.T) {
	logger, buf := testLogger()

	event := logger.Info()
	for _, f := range []Field{
		RunID("run-1"),
		Stage(task.StageResearching),
		FromStage(task.StageVerifying),
		ToStage(task.StageResearching),
		Outcome(task.OutcomeRetryResearch),
		DocCount(7),
		FactCount(3),
		FailCount(1),
		Attempt(2),
		Verdict("fail"),
		Duration(1500 * time.Millisecond),
		ErrorField(errors.New("boom")),
		Component("pipeline"),
		Str("extra", "value"),
	} {
		event = f(event)
	}
	event.Msg("fields test")

	out := buf.String()
	for _, want := range []string{
		`"run_id":"run-1"`,
		`"stage":"researching"`,
		`"from_stage":"verifying"`,
		`"to_stage":"researching"`,
		`"outcome":"retry_research"`,
		`"doc_count":7`,
		`"fact_count":3`,
		`"fail_count":1`,
		`"attempt":2`,
		`"verdict":"fail"`,
		`"duration_ms":1500`,
		`"component":"pipeline"`,
		`"extra":"value"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestErrorField_NilError(t *testing.T) {
	logger, buf := testLogger()

	f := ErrorField(nil)
	f(logger.Info()).Msg("nil case")

	if strings.Contains(buf.String(), "error") {
		t.Errorf("nil error should not add a field: %s", buf.String())
	}
}

func TestGet_InitializesDefault(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get() returned nil logger")
	}
}
