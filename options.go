package arbor

import (
	"log/slog"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithHooks registers observability hooks. Multiple calls are merged.
func WithHooks(hooks domain.EditHooks) Option {
	return func(e *Editor) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithStore configures the DocumentStore used by Save and Open.
func WithStore(store ports.DocumentStore) Option {
	return func(e *Editor) {
		e.store = store
	}
}

// WithWorkflowID names the workflow in the store (default "default").
func WithWorkflowID(id string) Option {
	return func(e *Editor) {
		e.workflowID = id
	}
}

// WithIDSource replaces the node id generator.
func WithIDSource(ids domain.IDSource) Option {
	return func(e *Editor) {
		e.ids = ids
	}
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(clock domain.Clock) Option {
	return func(e *Editor) {
		e.clock = clock
	}
}

// WithHistoryLimit bounds the undo history (default domain.MaxHistory).
func WithHistoryLimit(n int) Option {
	return func(e *Editor) {
		e.historyLimit = n
	}
}

// WithLayoutObserver observes the duration of every layout recomputation.
func WithLayoutObserver(fn func(time.Duration)) Option {
	return func(e *Editor) {
		e.onLayout = fn
	}
}
