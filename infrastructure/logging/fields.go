package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/groundwork/domain/task"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for pipeline logging.

// RunID adds a run ID field.
func RunID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("run_id", id)
	}
}

// Stage adds a stage field.
func Stage(s task.Stage) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("stage", string(s))
	}
}

// FromStage adds a from_stage field for transitions.
func FromStage(s task.Stage) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_stage", string(s))
	}
}

// ToStage adds a to_stage field for transitions.
func ToStage(s task.Stage) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_stage", string(s))
	}
}

// Outcome adds a verifier outcome field.
func Outcome(o task.Outcome) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("outcome", string(o))
	}
}

// DocCount adds a retrieved document count field.
func DocCount(count int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("doc_count", count)
	}
}

// FactCount adds a cited fact count field.
func FactCount(count int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("fact_count", count)
	}
}

// FailCount adds a verifier fail count field.
func FailCount(count int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("fail_count", count)
	}
}

// Attempt adds an attempt number field.
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("attempt", n)
	}
}

// Verdict adds a verdict field.
func Verdict(v string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("verdict", v)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
