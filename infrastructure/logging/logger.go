// Package logging provides structured logging for the pipeline using bolt.
package logging

import (
	"os"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

var (
	defaultLogger *bolt.Logger
	once          sync.Once
)

// Config configures the package-level logger.
type Config struct {
	// Level is the minimum level to emit (trace, debug, info, warn, error).
	Level string

	// Format selects the handler: "json" or "console".
	Format string

	// Output is where log lines go. Nil means stdout.
	Output *os.File
}

// DefaultConfig returns console logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stdout,
	}
}

// ProductionConfig returns JSON logging at info level.
func ProductionConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stdout,
	}
}

func parseLevel(s string) bolt.Level {
	switch s {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "info":
		return bolt.INFO
	case "warn":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// Init configures the package-level logger. Only the first call takes
// effect; later calls are no-ops so libraries cannot reconfigure the
// binary's logging.
func Init(config Config) {
	once.Do(func() {
		defaultLogger = newLogger(config)
	})
}

func newLogger(config Config) *bolt.Logger {
	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	var handler bolt.Handler
	switch config.Format {
	case "json":
		handler = bolt.NewJSONHandler(output)
	default:
		handler = bolt.NewConsoleHandler(output)
	}

	return bolt.New(handler).SetLevel(parseLevel(config.Level))
}

// Get returns the package-level logger, initializing it with defaults
// when Init was never called.
func Get() *bolt.Logger {
	if defaultLogger == nil {
		Init(DefaultConfig())
	}
	return defaultLogger
}

// SetLevel changes the minimum level of the package-level logger.
func SetLevel(level string) {
	Get().SetLevel(parseLevel(level))
}

// LogEvent wraps a bolt.Event so typed Fields can be chained onto it.
type LogEvent struct {
	event *bolt.Event
}

// Add applies a field and returns the event for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

// Msg emits the event with the given message.
func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}

// Trace starts a trace-level event on the package logger.
func Trace() *LogEvent {
	return &LogEvent{event: Get().Trace()}
}

// Debug starts a debug-level event on the package logger.
func Debug() *LogEvent {
	return &LogEvent{event: Get().Debug()}
}

// Info starts an info-level event on the package logger.
func Info() *LogEvent {
	return &LogEvent{event: Get().Info()}
}

// Warn starts a warn-level event on the package logger.
func Warn() *LogEvent {
	return &LogEvent{event: Get().Warn()}
}

// Error starts an error-level event on the package logger.
func Error() *LogEvent {
	return &LogEvent{event: Get().Error()}
}
