package domain

import "time"

// SimulationSummary holds the totals of one region-set simulation.
type SimulationSummary struct {
	ID            string               `json:"id"`
	Parameters    SimulationParameters `json:"parameters"`
	FloodedCount  int                  `json:"floodedCount"`
	TotalAffected uint                 `json:"totalAffected"`
	TotalAnalyzed int                  `json:"totalAnalyzed"`
	AvgRisk       float64              `json:"avgRisk"` // percent of analyzed regions flooded
	StartedAt     time.Time            `json:"startedAt"`
	CompletedAt   time.Time            `json:"completedAt"`
}

// Simulation is a completed run: its summary and one result per region.
type Simulation struct {
	Summary SimulationSummary `json:"summary"`
	Results []RegionResult    `json:"results"`
}

// Summarize totals results. AvgRisk is 0 when nothing was analyzed.
func Summarize(results []RegionResult) (flooded int, affected uint, avgRisk float64) {
	for _, r := range results {
		if r.Flooded {
			flooded++
		}
		affected += r.AffectedPopulation
	}
	if len(results) > 0 {
		avgRisk = float64(flooded) / float64(len(results)) * 100
	}
	return flooded, affected, avgRisk
}
