// Package resilience wraps model invocation with retry and circuit breaking using fortify.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/groundwork/infrastructure/model"
)

// Config configures the resilient invoker.
type Config struct {
	// MaxAttempts is the total number of invocation attempts.
	MaxAttempts int

	// InitialDelay is the initial delay between retries.
	InitialDelay time.Duration

	// BackoffMultiplier is the exponential backoff multiplier.
	BackoffMultiplier float64

	// RetrySchemaViolations retries invocations whose output failed
	// schema validation. Off by default: a model that returned malformed
	// output once tends to do it again at temperature 0.
	RetrySchemaViolations bool

	// BreakerThreshold is the number of consecutive failures before
	// the circuit opens.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration

	// RequestTimeout bounds a single invocation including retries.
	// Zero disables the bound.
	RequestTimeout time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      200 * time.Millisecond,
		BackoffMultiplier: 2.0,
		BreakerThreshold:  5,
		BreakerTimeout:    30 * time.Second,
	}
}

// Invoker decorates a model.Invoker with retry and circuit breaker
// patterns. Composition order: Timeout -> Circuit Breaker -> Retry.
type Invoker struct {
	inner   model.Invoker
	breaker circuitbreaker.CircuitBreaker[struct{}]
	retry   retry.Retry[struct{}]
	config  Config
}

// NewInvoker wraps inner with the resilience patterns from config.
func NewInvoker(inner model.Invoker, config Config) *Invoker {
	threshold := config.BreakerThreshold
	if threshold < 1 {
		threshold = 5
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Invoker{
		inner: inner,
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: uint32(threshold), // #nosec G115 -- bounds checked above
			Interval:    config.BreakerTimeout,
			Timeout:     config.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		retry: retry.New[struct{}](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  config.InitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.BackoffMultiplier,
		}),
		config: config,
	}
}

// NewDefaultInvoker wraps inner with default configuration.
func NewDefaultInvoker(inner model.Invoker) *Invoker {
	return NewInvoker(inner, DefaultConfig())
}

// Invoke runs the wrapped invoker, retrying transient failures.
// Schema violations are only retried when configured, and never
// count against the circuit breaker.
func (r *Invoker) Invoke(ctx context.Context, req model.Request, out any) error {
	if r.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.RequestTimeout)
		defer cancel()
	}

	var permanent error
	_, err := r.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return r.retry.Do(ctx, func(ctx context.Context) (struct{}, error) {
			err := r.inner.Invoke(ctx, req, out)
			if err != nil && !r.retryable(err) {
				// Surface the error without tripping retry or breaker.
				permanent = err
				return struct{}{}, nil
			}
			return struct{}{}, err
		})
	})
	if permanent != nil {
		return permanent
	}
	return err
}

func (r *Invoker) retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, model.ErrSchemaViolation) {
		return r.config.RetrySchemaViolations
	}
	return true
}

// BreakerState returns the current circuit breaker state.
func (r *Invoker) BreakerState() circuitbreaker.State {
	return r.breaker.State()
}
