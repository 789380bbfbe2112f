package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Level is an administrative depth.
type Level string

const (
	LevelProvince     Level = "province"
	LevelMunicipality Level = "municipality"
	LevelNeighborhood Level = "neighborhood"
)

// ParseLevel accepts the canonical level names plus the Portuguese "bairro"
// alias used by the web client.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "province", "provincia":
		return LevelProvince, nil
	case "municipality", "municipio":
		return LevelMunicipality, nil
	case "neighborhood", "bairro":
		return LevelNeighborhood, nil
	default:
		return "", fmt.Errorf("%w: unknown level %q", ErrInvalidParameter, s)
	}
}

// Depth returns the GADM administrative level for l (1, 2 or 3), or 0 if l is unknown.
func (l Level) Depth() int {
	switch l {
	case LevelProvince:
		return 1
	case LevelMunicipality:
		return 2
	case LevelNeighborhood:
		return 3
	default:
		return 0
	}
}

// Parent returns the enclosing level. Provinces have no parent.
func (l Level) Parent() (Level, bool) {
	switch l {
	case LevelMunicipality:
		return LevelProvince, true
	case LevelNeighborhood:
		return LevelMunicipality, true
	default:
		return "", false
	}
}

// ImpactCap is the maximum share of a region's population counted as
// affected. Finer-grained regions get a higher local displacement ceiling.
func (l Level) ImpactCap() float64 {
	switch l {
	case LevelMunicipality:
		return 0.6
	case LevelNeighborhood:
		return 0.7
	default:
		return 0.5
	}
}

// RiskCategory is the administrative flood-risk classification carried by
// the reference dataset.
type RiskCategory string

const (
	RiskLow      RiskCategory = "Baixo"
	RiskMedium   RiskCategory = "Médio"
	RiskHigh     RiskCategory = "Alto"
	RiskVeryHigh RiskCategory = "MuitoAlto"
)

// ParseRiskCategory matches s against the known categories by normalized name.
func ParseRiskCategory(s string) (RiskCategory, error) {
	switch NormalizeName(s) {
	case "baixo":
		return RiskLow, nil
	case "medio":
		return RiskMedium, nil
	case "alto":
		return RiskHigh, nil
	case "muitoalto":
		return RiskVeryHigh, nil
	default:
		return "", fmt.Errorf("%w: unknown risk category %q", ErrInvalidParameter, s)
	}
}

// Severity classifies a flooded region's impact.
type Severity string

const (
	SeverityNone     Severity = "Nenhuma"
	SeverityMild     Severity = "Leve"
	SeverityModerate Severity = "Moderada"
	SeveritySevere   Severity = "Grave"
	SeverityCritical Severity = "Crítica"
)

// rank orders severities from 0 (none) to 4 (critical).
func (s Severity) rank() int {
	switch s {
	case SeverityMild:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AdministrativeRegion is a static reference entity. Values are immutable
// once loaded.
type AdministrativeRegion struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Level        Level        `json:"level"`
	ParentName   string       `json:"parentName,omitempty"`
	ProvinceName string       `json:"province,omitempty"`
	Type         string       `json:"type,omitempty"` // settlement type, neighborhoods only
	RiskCategory RiskCategory `json:"riskCategory"`
	Population   uint         `json:"population"`
	Area         float64      `json:"area"` // km²
}

// Geometry is a boundary shape with its planar derivatives in WGS-84 degrees.
type Geometry struct {
	Shape    orb.Geometry
	Centroid orb.Point
	Bound    orb.Bound
	Area     float64 // square degrees
}

// NewGeometry derives centroid, bounds and area from g.
func NewGeometry(g orb.Geometry) Geometry {
	centroid, area := planar.CentroidArea(g)
	return Geometry{
		Shape:    g,
		Centroid: centroid,
		Bound:    g.Bound(),
		Area:     math.Abs(area),
	}
}

// PointGeometry builds a square window of half-width halfDeg degrees around
// p. It stands in for a polygon when a region could only be located by a
// fallback point.
func PointGeometry(p orb.Point, halfDeg float64) Geometry {
	b := orb.Bound{
		Min: orb.Point{p.Lon() - halfDeg, p.Lat() - halfDeg},
		Max: orb.Point{p.Lon() + halfDeg, p.Lat() + halfDeg},
	}
	return Geometry{
		Shape:    b.ToPolygon(),
		Centroid: p,
		Bound:    b,
		Area:     (2 * halfDeg) * (2 * halfDeg),
	}
}

// PolygonFeature is a named boundary from the geometry provider.
// ParentNames holds one name per ancestor level, outermost first.
type PolygonFeature struct {
	Name        string
	ParentNames []string
	Geometry    Geometry
}

// Parent returns the ancestor name at the given level, or "" if absent.
func (f PolygonFeature) Parent(l Level) string {
	i := l.Depth() - 1
	if i < 0 || i >= len(f.ParentNames) {
		return ""
	}
	return f.ParentNames[i]
}

// TerrainStats aggregates the sampled elevation grid of a region.
// Invariant: MinElevation ≤ AvgElevation ≤ MaxElevation and
// ElevationRange = MaxElevation − MinElevation.
type TerrainStats struct {
	AvgElevation        float64 `json:"avgElevation"`
	MinElevation        float64 `json:"minElevation"`
	MaxElevation        float64 `json:"maxElevation"`
	ElevationRange      float64 `json:"elevationRange"`
	MaxFlowAccumulation float64 `json:"maxFlowAccumulation"`
	PointsSampled       int     `json:"pointsSampled"`
}

// FallbackTerrain is used whenever no valid elevation could be sampled.
var FallbackTerrain = TerrainStats{
	AvgElevation:        400,
	MinElevation:        200,
	MaxElevation:        600,
	ElevationRange:      400,
	MaxFlowAccumulation: 1,
	PointsSampled:       0,
}

// ResolutionMethod records how a region was located.
type ResolutionMethod string

const (
	MatchExact       ResolutionMethod = "exact"
	MatchNormalized  ResolutionMethod = "normalized"
	MatchSubstring   ResolutionMethod = "substring"
	FallbackParent   ResolutionMethod = "parent_centroid"
	FallbackDefault  ResolutionMethod = "default_point"
	ResolutionDirect ResolutionMethod = "direct"
)

// IsFallback reports whether m located the region without a polygon match.
func (m ResolutionMethod) IsFallback() bool {
	return m == FallbackParent || m == FallbackDefault
}

// SimulationParameters is a validated simulation request.
type SimulationParameters struct {
	Level          Level    `json:"level"`
	FloodRate      float64  `json:"floodRate"` // fraction, 0..1
	UserWaterLevel *float64 `json:"waterLevel,omitempty"`
	Province       string   `json:"province,omitempty"`
	Municipality   string   `json:"municipality,omitempty"`
	Neighborhood   string   `json:"neighborhood,omitempty"`
}

// IsAll reports whether a filter value selects every region.
func IsAll(filter string) bool {
	f := strings.TrimSpace(filter)
	return f == "" || strings.EqualFold(f, "all")
}

// Validate rejects out-of-range parameters before any region is processed.
func (p SimulationParameters) Validate() error {
	if p.Level.Depth() == 0 {
		return fmt.Errorf("%w: unknown level %q", ErrInvalidParameter, p.Level)
	}
	if err := ValidateInputs(p.FloodRate, p.UserWaterLevel); err != nil {
		return err
	}
	if p.Level == LevelNeighborhood && IsAll(p.Municipality) {
		return fmt.Errorf("%w: neighborhood simulations require a specific municipality", ErrInvalidParameter)
	}
	return nil
}

// ValidateInputs checks the scoring inputs shared by every simulation: a
// flood rate in [0,1] and, if given, a finite non-negative water level.
func ValidateInputs(floodRate float64, userWaterLevel *float64) error {
	if math.IsNaN(floodRate) || floodRate < 0 || floodRate > 1 {
		return fmt.Errorf("%w: flood rate %v outside [0,1]", ErrInvalidParameter, floodRate)
	}
	if userWaterLevel != nil {
		wl := *userWaterLevel
		if math.IsNaN(wl) || math.IsInf(wl, 0) || wl < 0 {
			return fmt.Errorf("%w: water level %v must be a finite value >= 0", ErrInvalidParameter, wl)
		}
	}
	return nil
}

// RegionResult is the outcome for one region in one simulation. It is never
// mutated after creation.
type RegionResult struct {
	Region              AdministrativeRegion `json:"region"`
	Flooded             bool                 `json:"flooded"`
	EffectiveWaterLevel float64              `json:"effectiveWaterLevel"`
	Severity            Severity             `json:"severity"`
	RecoveryDays        uint                 `json:"recoveryDays"`
	AffectedPopulation  uint                 `json:"affectedPopulation"`
	Probability         float64              `json:"probability"`
	Terrain             TerrainStats         `json:"terrain"`
	Resolution          ResolutionMethod     `json:"resolution,omitempty"`
	Lat                 float64              `json:"lat,omitempty"`
	Lon                 float64              `json:"lon,omitempty"`
	// Geometry is the boundary the region was scored on. It is not persisted,
	// so results loaded from history carry only Lat and Lon.
	Geometry Geometry `json:"-"`
}
