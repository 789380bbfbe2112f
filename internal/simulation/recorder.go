package simulation

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/couchcryptid/flood-risk-engine/internal/observability"
)

// Recorder stores or forwards a completed simulation.
type Recorder interface {
	Name() string
	Record(ctx context.Context, sim domain.Simulation) error
}

// MultiRecorder fans a simulation out to every configured recorder. A
// failing recorder is logged and counted; it never fails the simulation.
type MultiRecorder struct {
	recorders []Recorder
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewMultiRecorder creates a MultiRecorder. With no recorders it does nothing.
func NewMultiRecorder(logger *slog.Logger, metrics *observability.Metrics, recorders ...Recorder) *MultiRecorder {
	return &MultiRecorder{recorders: recorders, logger: logger, metrics: metrics}
}

func (m *MultiRecorder) Name() string { return "multi" }

// Record calls each recorder in order and always returns nil.
func (m *MultiRecorder) Record(ctx context.Context, sim domain.Simulation) error {
	for _, r := range m.recorders {
		if err := r.Record(ctx, sim); err != nil {
			m.metrics.RecorderErrors.WithLabelValues(r.Name()).Inc()
			m.logger.Warn("record simulation failed",
				"recorder", r.Name(),
				"simulation_id", sim.Summary.ID,
				"error", err,
			)
		}
	}
	return nil
}
