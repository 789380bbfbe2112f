package domain

import "math"

// Assessment is the outcome of scoring one region.
type Assessment struct {
	Flooded      bool
	WaterLevel   float64 // metres, 0 when not flooded
	Severity     Severity
	RecoveryDays uint
	Probability  float64 // clamped to [0,1]
}

// categoryFactors returns the risk modifier and drainage factor for a
// category. Unknown categories are neutral: no modifier, average drainage.
func categoryFactors(c RiskCategory) (riskModifier, drainage float64) {
	switch c {
	case RiskVeryHigh:
		return 0.35, 0.9
	case RiskHigh:
		return 0.20, 0.7
	case RiskMedium:
		return 0.05, 0.5
	case RiskLow:
		return -0.10, 0.3
	default:
		return 0, 0.5
	}
}

func elevationRisk(avg float64) float64 {
	switch {
	case avg < 50:
		return 0.40
	case avg < 200:
		return 0.30
	case avg < 500:
		return 0.15
	case avg < 1000:
		return 0.05
	default:
		return -0.10
	}
}

func reliefRisk(elevationRange float64) float64 {
	switch {
	case elevationRange > 300:
		return 0.25
	case elevationRange > 150:
		return 0.15
	case elevationRange > 50:
		return 0.08
	default:
		return 0
	}
}

func flowRisk(maxAccumulation float64) float64 {
	return math.Min(0.3, 0.1*math.Log(maxAccumulation+1))
}

// AdjustedProbability blends the flood rate with the category, elevation,
// relief and flow-accumulation signals, clamped to [0,1].
func AdjustedProbability(c RiskCategory, floodRate float64, t TerrainStats) float64 {
	modifier, _ := categoryFactors(c)
	p := floodRate + modifier + elevationRisk(t.AvgElevation) + reliefRisk(t.ElevationRange) + flowRisk(t.MaxFlowAccumulation)
	return clamp(p, 0, 1)
}

// EffectiveWaterLevel estimates flood depth. A positive user-supplied level
// is scaled by drainage and elevation; otherwise a base level is derived from
// the probability and additionally scaled by it.
func EffectiveWaterLevel(c RiskCategory, probability float64, userWaterLevel *float64, avgElevation float64) float64 {
	_, drainage := categoryFactors(c)
	elevationMultiplier := math.Max(0.5, (1000-avgElevation)/1000)

	if userWaterLevel != nil && *userWaterLevel > 0 {
		return *userWaterLevel * drainage * elevationMultiplier
	}

	var base float64
	if probability > 0.5 {
		base = 10 * (probability - 0.5) / 0.5
	} else {
		base = 5 * probability / 0.5
	}
	return base * drainage * probability * elevationMultiplier
}

// FloodThreshold is the water level a region must exceed to flood.
func FloodThreshold(minElevation float64) float64 {
	return math.Max(2.0, minElevation/100)
}

// Classify bands a flooded region's water level into a severity and a
// recovery estimate in days.
func Classify(waterLevel, avgElevation float64) (Severity, uint) {
	var (
		severity Severity
		days     float64
	)
	switch {
	case waterLevel < 8.0 && avgElevation > 100:
		severity = SeverityMild
		days = math.Trunc(7 + 0.5*waterLevel)
	case waterLevel < 15.0:
		severity = SeverityModerate
		days = math.Trunc(15 + 1.0*waterLevel)
	case waterLevel < 25.0:
		severity = SeveritySevere
		days = math.Trunc(30 + 1.5*waterLevel)
	default:
		severity = SeverityCritical
		days = math.Trunc(60 + 2.0*waterLevel)
	}

	// Low terrain drains slowly.
	if avgElevation < 50 {
		days = math.Trunc(days * 1.5)
	}
	return severity, uint(days)
}

// Score maps a region's category, the flood rate, an optional user water
// level and its terrain to a flood decision. It is deterministic.
func Score(c RiskCategory, floodRate float64, userWaterLevel *float64, t TerrainStats) Assessment {
	p := AdjustedProbability(c, floodRate, t)
	wl := EffectiveWaterLevel(c, p, userWaterLevel, t.AvgElevation)

	if wl <= FloodThreshold(t.MinElevation) {
		return Assessment{Severity: SeverityNone, Probability: p}
	}

	severity, days := Classify(wl, t.AvgElevation)
	return Assessment{
		Flooded:      true,
		WaterLevel:   wl,
		Severity:     severity,
		RecoveryDays: days,
		Probability:  p,
	}
}

// AffectedPopulation is the share of population displaced by a flood,
// capped per level. Non-flooded regions have none.
func AffectedPopulation(population uint, a Assessment, l Level) uint {
	if !a.Flooded {
		return 0
	}
	factor := math.Min(a.WaterLevel/20.0, l.ImpactCap())
	if factor <= 0 {
		return 0
	}
	return uint(float64(population) * factor)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
