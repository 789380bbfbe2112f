package postgres

import (
	"database/sql"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
)

// simulationRow maps the simulations table. flood_rate is stored as a
// percentage.
type simulationRow struct {
	ID            string          `db:"id"`
	Level         string          `db:"level"`
	Province      sql.NullString  `db:"province"`
	Municipality  sql.NullString  `db:"municipality"`
	Neighborhood  sql.NullString  `db:"neighborhood"`
	FloodRate     float64         `db:"flood_rate"`
	WaterLevel    sql.NullFloat64 `db:"water_level"`
	FloodedCount  int             `db:"flooded_count"`
	TotalAffected int64           `db:"total_affected"`
	TotalAnalyzed int             `db:"total_analyzed"`
	AvgRisk       float64         `db:"avg_risk"`
	StartedAt     time.Time       `db:"started_at"`
	CompletedAt   time.Time       `db:"completed_at"`
}

type resultRow struct {
	SimulationID       string  `db:"simulation_id"`
	Position           int     `db:"position"`
	AreaName           string  `db:"area_name"`
	AreaType           string  `db:"area_type"`
	Level              string  `db:"level"`
	ParentName         string  `db:"parent_name"`
	RiskCategory       string  `db:"risk_category"`
	Flooded            bool    `db:"flooded"`
	WaterLevel         float64 `db:"water_level"`
	Severity           string  `db:"severity"`
	RecoveryDays       int     `db:"recovery_days"`
	AffectedPopulation int64   `db:"affected_population"`
	TotalPopulation    int64   `db:"total_population"`
	Probability        float64 `db:"probability"`
	Elevation          float64 `db:"elevation"`
	ElevationMin       float64 `db:"elevation_min"`
	ElevationMax       float64 `db:"elevation_max"`
	FlowAccumulation   float64 `db:"flow_accumulation"`
	PointsSampled      int     `db:"points_sampled"`
	Resolution         string  `db:"resolution"`
	Lat                float64 `db:"lat"`
	Lon                float64 `db:"lon"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toSimulationRow(s domain.SimulationSummary) simulationRow {
	row := simulationRow{
		ID:            s.ID,
		Level:         string(s.Parameters.Level),
		Province:      nullString(s.Parameters.Province),
		Municipality:  nullString(s.Parameters.Municipality),
		Neighborhood:  nullString(s.Parameters.Neighborhood),
		FloodRate:     s.Parameters.FloodRate * 100,
		FloodedCount:  s.FloodedCount,
		TotalAffected: int64(s.TotalAffected),
		TotalAnalyzed: s.TotalAnalyzed,
		AvgRisk:       s.AvgRisk,
		StartedAt:     s.StartedAt.UTC(),
		CompletedAt:   s.CompletedAt.UTC(),
	}
	if s.Parameters.UserWaterLevel != nil {
		row.WaterLevel = sql.NullFloat64{Float64: *s.Parameters.UserWaterLevel, Valid: true}
	}
	return row
}

func (row simulationRow) toSummary() domain.SimulationSummary {
	s := domain.SimulationSummary{
		ID: row.ID,
		Parameters: domain.SimulationParameters{
			Level:        domain.Level(row.Level),
			FloodRate:    row.FloodRate / 100,
			Province:     row.Province.String,
			Municipality: row.Municipality.String,
			Neighborhood: row.Neighborhood.String,
		},
		FloodedCount:  row.FloodedCount,
		TotalAffected: uint(row.TotalAffected),
		TotalAnalyzed: row.TotalAnalyzed,
		AvgRisk:       row.AvgRisk,
		StartedAt:     row.StartedAt,
		CompletedAt:   row.CompletedAt,
	}
	if row.WaterLevel.Valid {
		wl := row.WaterLevel.Float64
		s.Parameters.UserWaterLevel = &wl
	}
	return s
}

func toResultRows(simulationID string, results []domain.RegionResult) []resultRow {
	rows := make([]resultRow, len(results))
	for i, r := range results {
		rows[i] = resultRow{
			SimulationID:       simulationID,
			Position:           i,
			AreaName:           r.Region.Name,
			AreaType:           r.Region.Type,
			Level:              string(r.Region.Level),
			ParentName:         r.Region.ParentName,
			RiskCategory:       string(r.Region.RiskCategory),
			Flooded:            r.Flooded,
			WaterLevel:         r.EffectiveWaterLevel,
			Severity:           string(r.Severity),
			RecoveryDays:       int(r.RecoveryDays),
			AffectedPopulation: int64(r.AffectedPopulation),
			TotalPopulation:    int64(r.Region.Population),
			Probability:        r.Probability,
			Elevation:          r.Terrain.AvgElevation,
			ElevationMin:       r.Terrain.MinElevation,
			ElevationMax:       r.Terrain.MaxElevation,
			FlowAccumulation:   r.Terrain.MaxFlowAccumulation,
			PointsSampled:      r.Terrain.PointsSampled,
			Resolution:         string(r.Resolution),
			Lat:                r.Lat,
			Lon:                r.Lon,
		}
	}
	return rows
}

func (row resultRow) toResult() domain.RegionResult {
	return domain.RegionResult{
		Region: domain.AdministrativeRegion{
			Name:         row.AreaName,
			Level:        domain.Level(row.Level),
			ParentName:   row.ParentName,
			Type:         row.AreaType,
			RiskCategory: domain.RiskCategory(row.RiskCategory),
			Population:   uint(row.TotalPopulation),
		},
		Flooded:             row.Flooded,
		EffectiveWaterLevel: row.WaterLevel,
		Severity:            domain.Severity(row.Severity),
		RecoveryDays:        uint(row.RecoveryDays),
		AffectedPopulation:  uint(row.AffectedPopulation),
		Probability:         row.Probability,
		Terrain: domain.TerrainStats{
			AvgElevation:        row.Elevation,
			MinElevation:        row.ElevationMin,
			MaxElevation:        row.ElevationMax,
			ElevationRange:      row.ElevationMax - row.ElevationMin,
			MaxFlowAccumulation: row.FlowAccumulation,
			PointsSampled:       row.PointsSampled,
		},
		Resolution: domain.ResolutionMethod(row.Resolution),
		Lat:        row.Lat,
		Lon:        row.Lon,
	}
}
