package hallpass

import (
	"log/slog"

	"github.com/xraph/hallpass/audit"
	"github.com/xraph/hallpass/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithAuditSink registers an audit sink with the engine.
func WithAuditSink(s audit.Sink) Option {
	return func(e *Engine) {
		if e.audit == nil {
			e.audit = audit.NewRegistry(e.logger)
		}
		e.audit.Register(s)
	}
}
