package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

// DefaultHistoryLimit is used when History is called with a non-positive limit.
const DefaultHistoryLimit = 50

// Store persists completed simulations for audit and history.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// New creates a Store over an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Name identifies the store in logs and metrics.
func (s *Store) Name() string { return "postgres" }

// Record saves a simulation summary and its results in one transaction.
func (s *Store) Record(ctx context.Context, sim domain.Simulation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertSimulation = `
		INSERT INTO simulations
			(id, level, province, municipality, neighborhood, flood_rate, water_level,
			 flooded_count, total_affected, total_analyzed, avg_risk, started_at, completed_at)
		VALUES
			(:id, :level, :province, :municipality, :neighborhood, :flood_rate, :water_level,
			 :flooded_count, :total_affected, :total_analyzed, :avg_risk, :started_at, :completed_at)`

	if _, err := tx.NamedExecContext(ctx, insertSimulation, toSimulationRow(sim.Summary)); err != nil {
		return fmt.Errorf("insert simulation %s: %w", sim.Summary.ID, err)
	}

	if len(sim.Results) > 0 {
		const insertResults = `
			INSERT INTO simulation_results
				(simulation_id, position, area_name, area_type, level, parent_name, risk_category,
				 flooded, water_level, severity, recovery_days, affected_population, total_population,
				 probability, elevation, elevation_min, elevation_max, flow_accumulation, points_sampled,
				 resolution, lat, lon)
			VALUES
				(:simulation_id, :position, :area_name, :area_type, :level, :parent_name, :risk_category,
				 :flooded, :water_level, :severity, :recovery_days, :affected_population, :total_population,
				 :probability, :elevation, :elevation_min, :elevation_max, :flow_accumulation, :points_sampled,
				 :resolution, :lat, :lon)`

		if _, err := tx.NamedExecContext(ctx, insertResults, toResultRows(sim.Summary.ID, sim.Results)); err != nil {
			return fmt.Errorf("insert results for %s: %w", sim.Summary.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit simulation %s: %w", sim.Summary.ID, err)
	}
	return nil
}

// History returns the most recent simulation summaries, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]domain.SimulationSummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	const query = `
		SELECT id, level, province, municipality, neighborhood, flood_rate, water_level,
		       flooded_count, total_affected, total_analyzed, avg_risk, started_at, completed_at
		FROM simulations
		ORDER BY completed_at DESC
		LIMIT $1`

	var rows []simulationRow
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("query simulation history: %w", err)
	}

	out := make([]domain.SimulationSummary, len(rows))
	for i, row := range rows {
		out[i] = row.toSummary()
	}
	return out, nil
}

// Simulation loads one simulation with its results in their original order.
// It returns domain.ErrSimulationNotFound if id is unknown or not a UUID.
func (s *Store) Simulation(ctx context.Context, id string) (domain.Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Simulation{}, fmt.Errorf("%w: %s", domain.ErrSimulationNotFound, id)
	}

	const simulationQuery = `
		SELECT id, level, province, municipality, neighborhood, flood_rate, water_level,
		       flooded_count, total_affected, total_analyzed, avg_risk, started_at, completed_at
		FROM simulations
		WHERE id = $1`

	var row simulationRow
	err := s.db.GetContext(ctx, &row, simulationQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Simulation{}, fmt.Errorf("%w: %s", domain.ErrSimulationNotFound, id)
	}
	if err != nil {
		return domain.Simulation{}, fmt.Errorf("query simulation %s: %w", id, err)
	}

	const resultsQuery = `
		SELECT simulation_id, position, area_name, area_type, level, parent_name, risk_category,
		       flooded, water_level, severity, recovery_days, affected_population, total_population,
		       probability, elevation, elevation_min, elevation_max, flow_accumulation, points_sampled,
		       resolution, lat, lon
		FROM simulation_results
		WHERE simulation_id = $1
		ORDER BY position`

	var resultRows []resultRow
	if err := s.db.SelectContext(ctx, &resultRows, resultsQuery, id); err != nil {
		return domain.Simulation{}, fmt.Errorf("query results for %s: %w", id, err)
	}

	sim := domain.Simulation{Summary: row.toSummary(), Results: make([]domain.RegionResult, len(resultRows))}
	for i, r := range resultRows {
		sim.Results[i] = r.toResult()
	}
	return sim, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
