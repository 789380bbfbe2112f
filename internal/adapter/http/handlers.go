package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/couchcryptid/flood-risk-engine/internal/geometry"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	defaultFloodRatePercent = 50
	defaultHistoryLimit     = 50
	maxHistoryLimit         = 500
	maxRequestBody          = 1 << 20

	// A cold boundary download keeps running after this; the listing is
	// served without coordinates meanwhile.
	boundaryLookupTimeout = 3 * time.Second
)

var errHistoryDisabled = errors.New("simulation history is not configured")

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body: %w", domain.ErrInvalidParameter, err))
		return
	}

	params, err := req.toParameters()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("simulation requested",
		"level", params.Level,
		"province", params.Province,
		"municipality", params.Municipality,
		"neighborhood", params.Neighborhood,
	)

	sim, err := s.deps.Simulator.SimulateRegionSet(r.Context(), params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newSimulateResponse(sim))
}

func (s *Server) handleProvinces(w http.ResponseWriter, r *http.Request) {
	s.writeLocatedList(w, r, domain.LevelProvince, s.deps.Regions.Provinces())
}

func (s *Server) handleMunicipalities(w http.ResponseWriter, r *http.Request) {
	s.writeLocatedList(w, r, domain.LevelMunicipality, s.deps.Regions.Municipalities(r.URL.Query().Get("province")))
}

func (s *Server) handleNeighborhoods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeList(w, s.deps.Regions.Neighborhoods(q.Get("municipality"), q.Get("province")))
}

// writeLocatedList lists regions with the centroid of their matched boundary.
// Regions stay unlocated when boundaries are unavailable or unmatched.
func (s *Server) writeLocatedList(w http.ResponseWriter, r *http.Request, level domain.Level, regions []domain.AdministrativeRegion) {
	features := s.boundaries(r.Context(), level)

	views := make([]regionView, len(regions))
	for i, region := range regions {
		views[i] = regionView{AdministrativeRegion: region}
		if len(features) == 0 {
			continue
		}
		candidates := features
		if parentLevel, ok := level.Parent(); ok && region.ParentName != "" {
			candidates = geometry.WithParent(features, parentLevel, region.ParentName)
		}
		if f, _, ok := geometry.Match(region.Name, candidates); ok {
			lat, lon := f.Geometry.Centroid.Lat(), f.Geometry.Centroid.Lon()
			views[i].Lat, views[i].Lon = &lat, &lon
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, listResponse[regionView]{Success: true, Data: views, Count: len(views)})
}

func (s *Server) boundaries(ctx context.Context, level domain.Level) []domain.PolygonFeature {
	if s.deps.Boundaries == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, boundaryLookupTimeout)
	defer cancel()

	features, err := s.deps.Boundaries.Resolve(ctx, s.deps.CountryCode, level)
	if err != nil {
		s.logger.Warn("boundaries unavailable, listing regions without coordinates", "level", level, "error", err)
		return nil
	}
	return features
}

func (s *Server) handleElevation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := parseCoordinate(q.Get("lat"), "lat", 90)
	if err != nil {
		s.writeError(w, err)
		return
	}
	lon, err := parseCoordinate(q.Get("lon"), "lon", 180)
	if err != nil {
		s.writeError(w, err)
		return
	}

	elevation, err := s.deps.Elevation.Elevation(r.Context(), lat, lon)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, elevationResponse{
		Success:   true,
		Latitude:  lat,
		Longitude: lon,
		Elevation: elevation,
		Unit:      "meters",
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.writeError(w, errHistoryDisabled)
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			s.writeError(w, fmt.Errorf("%w: limit must be 1-%d", domain.ErrInvalidParameter, maxHistoryLimit))
			return
		}
		limit = n
	}

	history, err := s.deps.History.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, listResponse[domain.SimulationSummary]{Success: true, Data: history, Count: len(history)})
}

func (s *Server) handleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.writeError(w, errHistoryDisabled)
		return
	}
	sim, err := s.deps.History.Simulation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newSimulateResponse(sim))
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and reported as 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRegionNotFound), errors.Is(err, domain.ErrSimulationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrProviderUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, errHistoryDisabled):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	sharedobs.WriteJSON(w, status, errorResponse{Success: false, Error: err.Error()})
}

func writeList(w http.ResponseWriter, regions []domain.AdministrativeRegion) {
	if regions == nil {
		regions = []domain.AdministrativeRegion{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, listResponse[domain.AdministrativeRegion]{Success: true, Data: regions, Count: len(regions)})
}

func parseCoordinate(v, name string, limit float64) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < -limit || f > limit {
		return 0, fmt.Errorf("%w: %s must be a number in [-%g,%g]", domain.ErrInvalidParameter, name, limit, limit)
	}
	return f, nil
}

// --- request and response types ---

type simulateRequest struct {
	Level        string   `json:"level"`
	FloodRate    *float64 `json:"floodRate"` // percent, 0..100
	WaterLevel   *float64 `json:"waterLevel"`
	Province     string   `json:"province"`
	Municipality string   `json:"municipality"`
	Bairro       string   `json:"bairro"`
}

func (r simulateRequest) toParameters() (domain.SimulationParameters, error) {
	levelName := r.Level
	if levelName == "" {
		levelName = string(domain.LevelProvince)
	}
	level, err := domain.ParseLevel(levelName)
	if err != nil {
		return domain.SimulationParameters{}, err
	}

	percent := float64(defaultFloodRatePercent)
	if r.FloodRate != nil {
		percent = *r.FloodRate
	}
	params := domain.SimulationParameters{
		Level:          level,
		FloodRate:      percent / 100,
		UserWaterLevel: r.WaterLevel,
		Province:       r.Province,
		Municipality:   r.Municipality,
		Neighborhood:   r.Bairro,
	}
	return params, params.Validate()
}

type statistics struct {
	FloodedCount  int     `json:"floodedCount"`
	TotalAffected uint    `json:"totalAffected"`
	TotalAnalyzed int     `json:"totalAnalyzed"`
	AvgRisk       float64 `json:"avgRisk"`
}

type parametersView struct {
	Level        domain.Level `json:"level"`
	FloodRate    float64      `json:"floodRate"` // percent
	WaterLevel   *float64     `json:"waterLevel,omitempty"`
	Province     string       `json:"province,omitempty"`
	Municipality string       `json:"municipality,omitempty"`
	Bairro       string       `json:"bairro,omitempty"`
}

type simulateResponse struct {
	Success      bool                       `json:"success"`
	Data         []domain.RegionResult      `json:"data"`
	GeoJSON      *geojson.FeatureCollection `json:"geojson"`
	Statistics   statistics                 `json:"statistics"`
	Parameters   parametersView             `json:"parameters"`
	SimulationID string                     `json:"simulationId"`
	Timestamp    time.Time                  `json:"timestamp"`
}

func newSimulateResponse(sim domain.Simulation) simulateResponse {
	sum := sim.Summary
	results := sim.Results
	if results == nil {
		results = []domain.RegionResult{}
	}
	return simulateResponse{
		Success: true,
		Data:    results,
		GeoJSON: newFeatureCollection(results),
		Statistics: statistics{
			FloodedCount:  sum.FloodedCount,
			TotalAffected: sum.TotalAffected,
			TotalAnalyzed: sum.TotalAnalyzed,
			AvgRisk:       sum.AvgRisk,
		},
		Parameters: parametersView{
			Level:        sum.Parameters.Level,
			FloodRate:    sum.Parameters.FloodRate * 100,
			WaterLevel:   sum.Parameters.UserWaterLevel,
			Province:     sum.Parameters.Province,
			Municipality: sum.Parameters.Municipality,
			Bairro:       sum.Parameters.Neighborhood,
		},
		SimulationID: sum.ID,
		Timestamp:    sum.CompletedAt,
	}
}

// newFeatureCollection maps each result to a feature carrying its outcome.
// Results without a boundary, such as those loaded from history, become
// points.
func newFeatureCollection(results []domain.RegionResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range results {
		var g orb.Geometry = r.Geometry.Shape
		if g == nil {
			g = orb.Point{r.Lon, r.Lat}
		}
		f := geojson.NewFeature(g)
		f.Properties = geojson.Properties{
			"name":               r.Region.Name,
			"level":              r.Region.Level,
			"parent":             r.Region.ParentName,
			"riskCategory":       r.Region.RiskCategory,
			"population":         r.Region.Population,
			"flooded":            r.Flooded,
			"waterLevel":         r.EffectiveWaterLevel,
			"severity":           r.Severity,
			"recoveryDays":       r.RecoveryDays,
			"affectedPopulation": r.AffectedPopulation,
			"probability":        r.Probability,
			"resolution":         r.Resolution,
		}
		fc.Append(f)
	}
	return fc
}

type regionView struct {
	domain.AdministrativeRegion
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}

type listResponse[T any] struct {
	Success bool `json:"success"`
	Data    []T  `json:"data"`
	Count   int  `json:"count"`
}

type elevationResponse struct {
	Success   bool    `json:"success"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Unit      string  `json:"unit"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
