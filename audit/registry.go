package audit

import (
	"context"
	"log/slog"
)

// Registry holds registered sinks and dispatches entries to all of them in
// registration order. Sink errors are logged and never propagated: the
// audit trail must not fail an otherwise successful grant mutation.
type Registry struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRegistry creates a sink registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a sink. Sinks are notified in registration order.
func (r *Registry) Register(s Sink) {
	r.sinks = append(r.sinks, s)
}

// Sinks returns all registered sinks.
func (r *Registry) Sinks() []Sink { return r.sinks }

// Emit dispatches one entry to every registered sink.
func (r *Registry) Emit(ctx context.Context, e *Entry) {
	for _, s := range r.sinks {
		if err := s.Record(ctx, e); err != nil {
			r.logger.Warn("audit sink error",
				slog.String("sink", s.Name()),
				slog.String("action", string(e.Action)),
				slog.String("error", err.Error()),
			)
		}
	}
}
