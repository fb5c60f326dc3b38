package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/ports"
)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) ExecutorOption {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithConnectionResolver sets where connection ids are resolved to credentials.
func WithConnectionResolver(r ports.ConnectionResolver) ExecutorOption {
	return func(e *Executor) {
		e.resolver = r
	}
}

// WithIngestor sets the ingestor handed to knowledge connectors.
func WithIngestor(i domain.Ingestor) ExecutorOption {
	return func(e *Executor) {
		e.ingestor = i
	}
}

// WithNodeTimeout bounds a single node function call. Zero disables the limit.
func WithNodeTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.nodeTimeout = d
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}
