package application

import (
	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/infrastructure/observability"
)

// Option configures the pipeline.
type Option func(*Pipeline)

// WithTopK sets the evidence breadth for research passes.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithMaxRetries sets the verifier retry budget.
func WithMaxRetries(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithStore persists terminal run records to the given store.
func WithStore(store run.Store) Option {
	return func(p *Pipeline) {
		p.store = store
	}
}

// WithTracer emits one span per stage invocation.
func WithTracer(tracer *observability.Provider) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// WithMeta attaches immutable run configuration to every state record.
func WithMeta(meta map[string]any) Option {
	return func(p *Pipeline) {
		p.meta = meta
	}
}
