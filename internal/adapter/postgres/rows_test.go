package postgres

import (
	"testing"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestToSimulationRow_StoresRateAsPercent(t *testing.T) {
	wl := 4.5
	s := domain.SimulationSummary{
		ID: "7d1b0a52-2a67-4a39-9d2c-3a1f3f0a5d11",
		Parameters: domain.SimulationParameters{
			Level:          domain.LevelMunicipality,
			FloodRate:      0.35,
			UserWaterLevel: &wl,
			Province:       "Luanda",
		},
		StartedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("WAT", 3600)),
	}

	row := toSimulationRow(s)

	assert.InDelta(t, 35.0, row.FloodRate, 1e-9)
	assert.True(t, row.WaterLevel.Valid)
	assert.True(t, row.Province.Valid)
	assert.False(t, row.Municipality.Valid, "empty filters are stored as NULL")
	assert.Equal(t, time.UTC, row.StartedAt.Location())

	back := row.toSummary()
	assert.InDelta(t, 0.35, back.Parameters.FloodRate, 1e-9)
	assert.Equal(t, wl, *back.Parameters.UserWaterLevel)
	assert.Empty(t, back.Parameters.Municipality)
}

func TestToSimulationRow_NoWaterLevel(t *testing.T) {
	row := toSimulationRow(domain.SimulationSummary{Parameters: domain.SimulationParameters{Level: domain.LevelProvince}})

	assert.False(t, row.WaterLevel.Valid)
	assert.Nil(t, row.toSummary().Parameters.UserWaterLevel)
}

func TestToResultRows_KeepsOrderAndDerivesRange(t *testing.T) {
	results := []domain.RegionResult{
		{Region: domain.AdministrativeRegion{Name: "Cazenga"}, Terrain: domain.TerrainStats{MinElevation: 10, MaxElevation: 70}},
		{Region: domain.AdministrativeRegion{Name: "Viana"}},
	}

	rows := toResultRows("sim-1", results)

	assert.Equal(t, 0, rows[0].Position)
	assert.Equal(t, 1, rows[1].Position)
	assert.Equal(t, "sim-1", rows[1].SimulationID)
	assert.Equal(t, 60.0, rows[0].toResult().Terrain.ElevationRange)
}
