package terrain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/couchcryptid/flood-risk-engine/internal/observability"
	"github.com/paulmach/orb"
)

// MaxBatchSize is the largest number of points sent to the elevation
// provider in one request.
const MaxBatchSize = 100

// Analyzer samples a region's elevation and summarizes it into TerrainStats.
type Analyzer struct {
	provider  domain.ElevationProvider
	cache     Cache
	batchSize int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewAnalyzer creates an Analyzer. batchSize is clamped to 1..MaxBatchSize.
func NewAnalyzer(provider domain.ElevationProvider, cache Cache, batchSize int, logger *slog.Logger, metrics *observability.Metrics) *Analyzer {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &Analyzer{
		provider:  provider,
		cache:     cache,
		batchSize: batchSize,
		logger:    logger,
		metrics:   metrics,
	}
}

// Analyze returns terrain statistics for g, consulting the cache first.
// Elevation failures never surface as errors: failed batches count as
// missing points and an empty sample yields domain.FallbackTerrain.
// The only error returned is ctx's.
func (a *Analyzer) Analyze(ctx context.Context, g domain.Geometry) (domain.TerrainStats, error) {
	key := CacheKey(g.Centroid)

	stats, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("terrain cache lookup failed", "key", key, "error", err)
	}
	if ok {
		a.metrics.TerrainCache.WithLabelValues("hit").Inc()
		return stats, nil
	}
	a.metrics.TerrainCache.WithLabelValues("miss").Inc()

	size := GridSize(g.Area)
	elevations := a.sample(ctx, SampleGrid(g.Bound, size))
	if err := ctx.Err(); err != nil {
		return domain.TerrainStats{}, err
	}

	stats = Summarize(elevations, size)
	if stats.PointsSampled == 0 {
		a.metrics.TerrainFallbacks.Inc()
		a.logger.Warn("no valid elevations, using fallback terrain", "key", key, "points", len(elevations))
	} else {
		a.logger.Debug("terrain analyzed",
			"key", key,
			"avg_elevation", stats.AvgElevation,
			"max_flow_accumulation", stats.MaxFlowAccumulation,
			"points_sampled", stats.PointsSampled,
		)
	}

	if err := a.cache.Add(ctx, key, stats); err != nil {
		a.logger.Warn("terrain cache store failed", "key", key, "error", err)
	}
	return stats, nil
}

// sample fetches elevations in batches, preserving point order. A failed
// batch leaves its points nil.
func (a *Analyzer) sample(ctx context.Context, points []orb.Point) []*float64 {
	out := make([]*float64, 0, len(points))
	for start := 0; start < len(points); start += a.batchSize {
		end := min(start+a.batchSize, len(points))
		batch := points[start:end]

		if ctx.Err() != nil {
			return append(out, make([]*float64, len(points)-start)...)
		}

		begin := time.Now()
		values, err := a.provider.LookupElevations(ctx, batch)
		a.metrics.ElevationAPIDuration.Observe(time.Since(begin).Seconds())

		if err == nil && len(values) != len(batch) {
			err = fmt.Errorf("%w: expected %d elevations, got %d", domain.ErrProviderUnavailable, len(batch), len(values))
		}
		if err != nil {
			a.metrics.ElevationRequests.WithLabelValues("error").Inc()
			a.logger.Warn("elevation batch failed, marking points missing",
				"error", err,
				"batch_start", start,
				"batch_size", len(batch),
			)
			out = append(out, make([]*float64, len(batch))...)
			continue
		}
		a.metrics.ElevationRequests.WithLabelValues("success").Inc()
		out = append(out, values...)
	}
	return out
}

// GridSize picks the sample grid dimension from a polygon's area in square degrees.
func GridSize(area float64) int {
	switch {
	case area > 1.0:
		return 15
	case area > 0.1:
		return 10
	default:
		return 5
	}
}

// SampleGrid spaces size×size points evenly across b, bounds inclusive.
// Points are row-major with rows running from the southern edge northward.
func SampleGrid(b orb.Bound, size int) []orb.Point {
	lons := linspace(b.Min.Lon(), b.Max.Lon(), size)
	lats := linspace(b.Min.Lat(), b.Max.Lat(), size)

	points := make([]orb.Point, 0, size*size)
	for _, lat := range lats {
		for _, lon := range lons {
			points = append(points, orb.Point{lon, lat})
		}
	}
	return points
}

func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range n {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// Summarize computes TerrainStats from row-major elevations of a size×size
// grid. Values that are missing or negative are invalid: they are left out of
// the statistics and excluded from the flow model.
func Summarize(elevations []*float64, size int) domain.TerrainStats {
	dem := make([][]float64, size)
	var (
		sum   float64
		count int
		lo    = math.Inf(1)
		hi    = math.Inf(-1)
	)
	for r := range size {
		dem[r] = make([]float64, size)
		for c := range size {
			dem[r][c] = math.NaN()
			i := r*size + c
			if i >= len(elevations) || !isValid(elevations[i]) {
				continue
			}
			z := *elevations[i]
			dem[r][c] = z
			sum += z
			count++
			lo = math.Min(lo, z)
			hi = math.Max(hi, z)
		}
	}

	if count == 0 {
		return domain.FallbackTerrain
	}

	return domain.TerrainStats{
		AvgElevation:        sum / float64(count),
		MinElevation:        lo,
		MaxElevation:        hi,
		ElevationRange:      hi - lo,
		MaxFlowAccumulation: RunD8(dem).MaxAccumulation(),
		PointsSampled:       count,
	}
}

func isValid(z *float64) bool {
	return z != nil && !math.IsNaN(*z) && *z >= 0
}
