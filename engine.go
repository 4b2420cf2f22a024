package hallpass

import (
	"context"
	"log/slog"

	"github.com/xraph/hallpass/audit"
	"github.com/xraph/hallpass/store"
)

// Engine is the authorization resolution engine. It computes effective
// permission sets, filters candidate-ID batches by authorization, and
// applies grant mutations with audit notifications.
//
// The engine is stateless: every call reads the store directly, with no
// caching in between. Resolution calls are safe to run concurrently.
type Engine struct {
	store  store.Store
	audit  *audit.Registry
	logger *slog.Logger
	config Config
}

// NewEngine creates a new hallpass engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, ErrStoreRequired
	}
	if e.audit == nil {
		e.audit = audit.NewRegistry(e.logger)
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Audit returns the audit sink registry.
func (e *Engine) Audit() *audit.Registry { return e.audit }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown.
func (e *Engine) Stop(_ context.Context) error { return nil }
