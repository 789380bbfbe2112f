package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS simulations (
		id              UUID PRIMARY KEY,
		level           TEXT NOT NULL,
		province        TEXT,
		municipality    TEXT,
		neighborhood    TEXT,
		flood_rate      DOUBLE PRECISION NOT NULL,
		water_level     DOUBLE PRECISION,
		flooded_count   INTEGER NOT NULL,
		total_affected  BIGINT NOT NULL,
		total_analyzed  INTEGER NOT NULL,
		avg_risk        DOUBLE PRECISION NOT NULL,
		started_at      TIMESTAMPTZ NOT NULL,
		completed_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS simulations_completed_at_idx ON simulations (completed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS simulation_results (
		id                  BIGSERIAL PRIMARY KEY,
		simulation_id       UUID NOT NULL REFERENCES simulations (id) ON DELETE CASCADE,
		position            INTEGER NOT NULL,
		area_name           TEXT NOT NULL,
		area_type           TEXT NOT NULL,
		level               TEXT NOT NULL,
		parent_name         TEXT NOT NULL,
		risk_category       TEXT NOT NULL,
		flooded             BOOLEAN NOT NULL,
		water_level         DOUBLE PRECISION NOT NULL,
		severity            TEXT NOT NULL,
		recovery_days       INTEGER NOT NULL,
		affected_population BIGINT NOT NULL,
		total_population    BIGINT NOT NULL,
		probability         DOUBLE PRECISION NOT NULL,
		elevation           DOUBLE PRECISION NOT NULL,
		elevation_min       DOUBLE PRECISION NOT NULL,
		elevation_max       DOUBLE PRECISION NOT NULL,
		flow_accumulation   DOUBLE PRECISION NOT NULL,
		points_sampled      INTEGER NOT NULL,
		resolution          TEXT NOT NULL,
		lat                 DOUBLE PRECISION NOT NULL,
		lon                 DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS simulation_results_simulation_idx ON simulation_results (simulation_id, position)`,
}

// EnsureSchema creates the history tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
