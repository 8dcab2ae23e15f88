// Package config provides configuration loading and parsing for groundwork.
package config

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidFormat is returned when the config cannot be parsed.
	ErrInvalidFormat = errors.New("invalid config format")

	// ErrUnsupportedFormat is returned for unknown file extensions.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrMissingEnvVar is returned when a required env var is unset.
	ErrMissingEnvVar = errors.New("missing environment variable")

	// ErrInvalidConfig is returned when validation fails.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// PipelineConfig is the root configuration for a pipeline.
type PipelineConfig struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`

	Model      ModelConfig      `yaml:"model" json:"model"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Verifier   VerifierConfig   `yaml:"verifier" json:"verifier"`
	Resilience ResilienceConfig `yaml:"resilience" json:"resilience"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Tracing    TracingConfig    `yaml:"tracing" json:"tracing"`
}

// ModelConfig selects and configures the completion provider.
type ModelConfig struct {
	Provider    string  `yaml:"provider" json:"provider"` // openai or anthropic
	Model       string  `yaml:"model" json:"model"`
	APIKey      string  `yaml:"api_key" json:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Timeout     int     `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// RetrievalConfig selects and configures the evidence backend.
type RetrievalConfig struct {
	Backend  string `yaml:"backend" json:"backend"` // http or memory
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	APIKey   string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Corpus   string `yaml:"corpus,omitempty" json:"corpus,omitempty"`
	TopK     int    `yaml:"top_k" json:"top_k"`
	Timeout  int    `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// VerifierConfig sets the retry policy.
type VerifierConfig struct {
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// ResilienceConfig bounds retries around model invocations.
type ResilienceConfig struct {
	MaxAttempts           int  `yaml:"max_attempts" json:"max_attempts"`
	InitialDelayMS        int  `yaml:"initial_delay_ms" json:"initial_delay_ms"`
	RetrySchemaViolations bool `yaml:"retry_schema_violations" json:"retry_schema_violations"`
}

// StorageConfig selects the run store backend.
type StorageConfig struct {
	Backend string `yaml:"backend" json:"backend"` // none, memory, badger, sqlite, postgres, redis, mongodb
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
	DSN     string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Exporter string `yaml:"exporter,omitempty" json:"exporter,omitempty"` // stdout or otlp
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty" json:"insecure,omitempty"`
}

// Default returns a configuration with sensible defaults.
func Default() *PipelineConfig {
	return &PipelineConfig{
		Version: "1.0",
		Model: ModelConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0,
		},
		Retrieval: RetrievalConfig{
			Backend: "memory",
			TopK:    7,
		},
		Verifier: VerifierConfig{
			MaxRetries: 2,
		},
		Resilience: ResilienceConfig{
			MaxAttempts:    1,
			InitialDelayMS: 200,
		},
		Storage: StorageConfig{
			Backend: "none",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *PipelineConfig) Validate() error {
	switch c.Model.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("%w: unknown model provider %q", ErrInvalidConfig, c.Model.Provider)
	}
	if c.Model.Model == "" {
		return fmt.Errorf("%w: model name is required", ErrInvalidConfig)
	}

	switch c.Retrieval.Backend {
	case "memory":
	case "http":
		if c.Retrieval.Endpoint == "" {
			return fmt.Errorf("%w: http retrieval requires an endpoint", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown retrieval backend %q", ErrInvalidConfig, c.Retrieval.Backend)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval top_k must be positive", ErrInvalidConfig)
	}

	if c.Verifier.MaxRetries < 0 {
		return fmt.Errorf("%w: verifier max_retries must be >= 0", ErrInvalidConfig)
	}

	if c.Resilience.MaxAttempts < 1 {
		return fmt.Errorf("%w: resilience max_attempts must be >= 1", ErrInvalidConfig)
	}

	switch c.Storage.Backend {
	case "", "none", "memory":
	case "badger", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: %s storage requires a path", ErrInvalidConfig, c.Storage.Backend)
		}
	case "postgres", "redis", "mongodb":
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: %s storage requires a dsn", ErrInvalidConfig, c.Storage.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	switch c.Tracing.Exporter {
	case "", "stdout":
	case "otlp":
		if c.Tracing.Endpoint == "" {
			return fmt.Errorf("%w: otlp tracing requires an endpoint", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown trace exporter %q", ErrInvalidConfig, c.Tracing.Exporter)
	}

	return nil
}
