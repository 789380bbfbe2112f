// Package simulation runs flood simulations over a set of administrative
// regions: it selects regions from the reference data and the boundary
// features, analyzes each region's terrain, scores it, and totals the
// results.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/couchcryptid/flood-risk-engine/internal/geometry"
	"github.com/couchcryptid/flood-risk-engine/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Reference looks up static region data.
type Reference interface {
	Lookup(l domain.Level, name, parent string) (domain.AdministrativeRegion, bool)
	Neighborhoods(municipality, province string) []domain.AdministrativeRegion
	Provinces() []domain.AdministrativeRegion
	Regions(l domain.Level) []domain.AdministrativeRegion
}

// Locator resolves boundary features and places regions on them.
type Locator interface {
	Resolve(ctx context.Context, countryCode string, level domain.Level) ([]domain.PolygonFeature, error)
	Locate(ctx context.Context, countryCode string, region domain.AdministrativeRegion) (geometry.Location, error)
}

// TerrainAnalyzer derives terrain statistics for a geometry.
type TerrainAnalyzer interface {
	Analyze(ctx context.Context, g domain.Geometry) (domain.TerrainStats, error)
}

// Options tunes a Simulator. Zero values select the defaults.
type Options struct {
	CountryCode string          // default "AGO"
	Concurrency int             // regions analyzed in parallel, default 1
	Clock       clockwork.Clock // default real clock
}

// Simulator runs region-set simulations.
type Simulator struct {
	ref         Reference
	locator     Locator
	analyzer    TerrainAnalyzer
	recorder    Recorder
	logger      *slog.Logger
	metrics     *observability.Metrics
	countryCode string
	concurrency int
	clock       clockwork.Clock
}

// New creates a Simulator. recorder may be nil.
func New(ref Reference, locator Locator, analyzer TerrainAnalyzer, recorder Recorder, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Simulator {
	if opts.CountryCode == "" {
		opts.CountryCode = "AGO"
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if recorder == nil {
		recorder = NewMultiRecorder(logger, metrics)
	}
	return &Simulator{
		ref:         ref,
		locator:     locator,
		analyzer:    analyzer,
		recorder:    recorder,
		logger:      logger,
		metrics:     metrics,
		countryCode: opts.CountryCode,
		concurrency: opts.Concurrency,
		clock:       opts.Clock,
	}
}

// CheckReadiness returns nil once reference data is available.
func (s *Simulator) CheckReadiness(_ context.Context) error {
	if len(s.ref.Provinces()) == 0 {
		return errors.New("reference data not loaded")
	}
	return nil
}

// target is one region to score. A nil location is resolved by the Locator.
type target struct {
	region   domain.AdministrativeRegion
	location *geometry.Location
}

// SimulateRegionSet scores every region selected by params. Invalid
// parameters fail with domain.ErrInvalidParameter, unknown filter regions
// with domain.ErrRegionNotFound and boundary fetch failures with
// domain.ErrProviderUnavailable; no partial result is returned. The
// completed simulation is handed to the recorder before returning.
func (s *Simulator) SimulateRegionSet(ctx context.Context, params domain.SimulationParameters) (domain.Simulation, error) {
	if err := params.Validate(); err != nil {
		s.metrics.Simulations.WithLabelValues(string(params.Level), "error").Inc()
		return domain.Simulation{}, err
	}

	start := s.clock.Now()
	sim, err := s.run(ctx, params)
	if err != nil {
		s.metrics.Simulations.WithLabelValues(string(params.Level), "error").Inc()
		s.logger.Error("simulation failed", "level", params.Level, "error", err)
		return domain.Simulation{}, err
	}

	sim.Summary.StartedAt = start
	sim.Summary.CompletedAt = s.clock.Now()
	s.metrics.Simulations.WithLabelValues(string(params.Level), "success").Inc()
	s.metrics.SimulationDuration.WithLabelValues(string(params.Level)).Observe(s.clock.Since(start).Seconds())
	s.logger.Info("simulation completed",
		"simulation_id", sim.Summary.ID,
		"level", params.Level,
		"analyzed", sim.Summary.TotalAnalyzed,
		"flooded", sim.Summary.FloodedCount,
		"affected", sim.Summary.TotalAffected,
	)

	if err := s.recorder.Record(ctx, sim); err != nil {
		s.metrics.RecorderErrors.WithLabelValues(s.recorder.Name()).Inc()
		s.logger.Warn("record simulation failed", "recorder", s.recorder.Name(), "simulation_id", sim.Summary.ID, "error", err)
	}
	return sim, nil
}

func (s *Simulator) run(ctx context.Context, params domain.SimulationParameters) (domain.Simulation, error) {
	var (
		targets []target
		err     error
	)
	if params.Level == domain.LevelNeighborhood {
		targets, err = s.neighborhoodTargets(params)
	} else {
		targets, err = s.featureTargets(ctx, params)
	}
	if err != nil {
		return domain.Simulation{}, err
	}

	results := make([]domain.RegionResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, t := range targets {
		g.Go(func() error {
			r, err := s.simulateTarget(gctx, t, params)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Simulation{}, err
	}

	flooded, affected, avgRisk := domain.Summarize(results)
	s.metrics.RegionsAnalyzed.Add(float64(len(results)))
	s.metrics.RegionsFlooded.Add(float64(flooded))

	return domain.Simulation{
		Summary: domain.SimulationSummary{
			ID:            uuid.NewString(),
			Parameters:    params,
			FloodedCount:  flooded,
			TotalAffected: affected,
			TotalAnalyzed: len(results),
			AvgRisk:       avgRisk,
		},
		Results: results,
	}, nil
}

func (s *Simulator) simulateTarget(ctx context.Context, t target, params domain.SimulationParameters) (domain.RegionResult, error) {
	loc := t.location
	if loc == nil {
		l, err := s.locator.Locate(ctx, s.countryCode, t.region)
		if err != nil {
			return domain.RegionResult{}, err
		}
		loc = &l
	}

	terrain, err := s.analyzer.Analyze(ctx, loc.Geometry)
	if err != nil {
		return domain.RegionResult{}, fmt.Errorf("analyze %s: %w", t.region.Name, err)
	}

	r, err := SimulateSingleRegion(t.region, params.FloodRate, params.UserWaterLevel, terrain)
	if err != nil {
		return domain.RegionResult{}, err
	}
	r.Resolution = loc.Method
	r.Lat = loc.Geometry.Centroid.Lat()
	r.Lon = loc.Geometry.Centroid.Lon()
	r.Geometry = loc.Geometry
	return r, nil
}

// neighborhoodTargets selects the neighborhoods of the requested
// municipality from the reference data. Their polygons are located later.
func (s *Simulator) neighborhoodTargets(params domain.SimulationParameters) ([]target, error) {
	province := params.Province
	if domain.IsAll(province) {
		province = ""
	}
	municipality, ok := s.ref.Lookup(domain.LevelMunicipality, params.Municipality, province)
	if !ok {
		return nil, fmt.Errorf("%w: municipality %q", domain.ErrRegionNotFound, params.Municipality)
	}

	neighborhoods := s.ref.Neighborhoods(municipality.Name, municipality.ParentName)
	if !domain.IsAll(params.Neighborhood) {
		var selected []domain.AdministrativeRegion
		for _, n := range neighborhoods {
			if domain.SameName(n.Name, params.Neighborhood) {
				selected = append(selected, n)
			}
		}
		if len(selected) == 0 {
			return nil, fmt.Errorf("%w: neighborhood %q in %s", domain.ErrRegionNotFound, params.Neighborhood, municipality.Name)
		}
		neighborhoods = selected
	}

	targets := make([]target, len(neighborhoods))
	for i, n := range neighborhoods {
		targets[i] = target{region: n}
	}
	return targets, nil
}

// featureTargets selects province or municipality boundary features by the
// request filters and joins them to reference data by normalized name, then
// by containment. Features without reference data are skipped.
func (s *Simulator) featureTargets(ctx context.Context, params domain.SimulationParameters) ([]target, error) {
	if !domain.IsAll(params.Province) {
		if _, ok := s.ref.Lookup(domain.LevelProvince, params.Province, ""); !ok {
			return nil, fmt.Errorf("%w: province %q", domain.ErrRegionNotFound, params.Province)
		}
	}
	filterMunicipality := params.Level == domain.LevelMunicipality && !domain.IsAll(params.Municipality)
	if filterMunicipality {
		if _, ok := s.ref.Lookup(domain.LevelMunicipality, params.Municipality, ""); !ok {
			return nil, fmt.Errorf("%w: municipality %q", domain.ErrRegionNotFound, params.Municipality)
		}
	}

	features, err := s.locator.Resolve(ctx, s.countryCode, params.Level)
	if err != nil {
		return nil, err
	}

	var targets []target
	for _, f := range features {
		province := f.Name
		if params.Level != domain.LevelProvince {
			province = f.Parent(domain.LevelProvince)
		}
		if !domain.IsAll(params.Province) && !domain.SameName(province, params.Province) {
			continue
		}
		if filterMunicipality && !domain.SameName(f.Name, params.Municipality) {
			continue
		}

		parent := ""
		if params.Level != domain.LevelProvince {
			parent = province
		}
		region, ok := s.ref.Lookup(params.Level, f.Name, parent)
		if !ok {
			region, ok = s.matchReference(params.Level, f.Name, parent)
		}
		if !ok {
			s.metrics.RegionsSkipped.Inc()
			s.logger.Warn("no reference data for boundary feature, skipping",
				"region", f.Name,
				"level", params.Level,
				"parent", parent,
			)
			continue
		}
		targets = append(targets, target{
			region:   region,
			location: &geometry.Location{Geometry: f.Geometry, Method: domain.ResolutionDirect, FeatureName: f.Name},
		})
	}
	return targets, nil
}

// matchReference joins a feature name that has no normalized equal in the
// reference data, using the containment tier within parent's province.
func (s *Simulator) matchReference(level domain.Level, name, parent string) (domain.AdministrativeRegion, bool) {
	var candidates []domain.AdministrativeRegion
	for _, r := range s.ref.Regions(level) {
		if parent == "" || domain.SameName(r.ProvinceName, parent) {
			candidates = append(candidates, r)
		}
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}

	i, method, ok := geometry.MatchName(name, names)
	if !ok {
		return domain.AdministrativeRegion{}, false
	}
	s.logger.Info("boundary feature joined to reference data by name containment",
		"feature", name,
		"region", candidates[i].Name,
		"level", level,
		"method", method,
	)
	return candidates[i], true
}

// SimulateSingleRegion scores one region whose terrain is already known. It
// is deterministic and performs no I/O.
func SimulateSingleRegion(region domain.AdministrativeRegion, floodRate float64, userWaterLevel *float64, terrain domain.TerrainStats) (domain.RegionResult, error) {
	if err := domain.ValidateInputs(floodRate, userWaterLevel); err != nil {
		return domain.RegionResult{}, err
	}
	a := domain.Score(region.RiskCategory, floodRate, userWaterLevel, terrain)
	return domain.RegionResult{
		Region:              region,
		Flooded:             a.Flooded,
		EffectiveWaterLevel: a.WaterLevel,
		Severity:            a.Severity,
		RecoveryDays:        a.RecoveryDays,
		AffectedPopulation:  domain.AffectedPopulation(region.Population, a, region.Level),
		Probability:         a.Probability,
		Terrain:             terrain,
	}, nil
}
