package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Request carries the role instructions and rendered variables for one
// structured invocation.
type Request struct {
	// System is the role-specific instruction template.
	System string

	// User is the rendered task input for this invocation.
	User string
}

// Validator is implemented by output contracts that carry their own
// structural rules beyond JSON shape.
type Validator interface {
	Validate() error
}

// Invoker produces a schema-validated value from role instructions, or
// fails. The pipeline depends only on this interface; whether the backing
// implementation is a remote model or a scripted double is invisible.
type Invoker interface {
	// Invoke unmarshals the model's structured output into out.
	// Parse or validation failure yields a SchemaViolationError.
	Invoke(ctx context.Context, req Request, out any) error
}

// StructuredClient is the production Invoker: it drives a chat completion
// Provider and enforces the output contract on the reply.
type StructuredClient struct {
	provider    Provider
	model       string
	temperature float64
	maxTokens   int
}

// StructuredClientConfig configures the structured client.
type StructuredClientConfig struct {
	Provider    Provider
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewStructuredClient creates a structured client over a provider.
func NewStructuredClient(config StructuredClientConfig) *StructuredClient {
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}
	return &StructuredClient{
		provider:    config.Provider,
		model:       config.Model,
		temperature: config.Temperature,
		maxTokens:   maxTokens,
	}
}

// Invoke implements the Invoker interface.
func (c *StructuredClient) Invoke(ctx context.Context, req Request, out any) error {
	resp, err := c.provider.Complete(ctx, CompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return fmt.Errorf("%s completion failed: %w", c.provider.Name(), err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s completion failed: %w", c.provider.Name(), resp.Error)
	}

	return Decode(resp.Message.Content, out)
}

// Decode parses model output into the target contract, enforcing its
// Validate rules. Markdown code fences around the JSON are tolerated.
func Decode(content string, out any) error {
	cleaned := stripFences(content)

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &SchemaViolationError{Raw: content, Err: err}
	}

	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return &SchemaViolationError{Raw: content, Err: err}
		}
	}

	return nil
}

// stripFences removes markdown code blocks around a JSON payload.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(content, "```json"):
		content = strings.TrimPrefix(content, "```json")
	case strings.HasPrefix(content, "```"):
		content = strings.TrimPrefix(content, "```")
	default:
		return content
	}
	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
