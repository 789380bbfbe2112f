package terrain_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/couchcryptid/flood-risk-engine/internal/observability"
	"github.com/couchcryptid/flood-risk-engine/internal/terrain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockElevation struct {
	calls   atomic.Int32
	sizes   []int
	failOn  map[int]bool // 0-based call index
	elevate func(p orb.Point) *float64
}

func (m *mockElevation) LookupElevations(_ context.Context, points []orb.Point) ([]*float64, error) {
	call := int(m.calls.Add(1) - 1)
	m.sizes = append(m.sizes, len(points))
	if m.failOn[call] {
		return nil, errors.New("connection reset")
	}
	out := make([]*float64, len(points))
	for i, p := range points {
		out[i] = m.elevate(p)
	}
	return out, nil
}

func constant(v float64) func(orb.Point) *float64 {
	return func(orb.Point) *float64 { return &v }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAnalyzer(p domain.ElevationProvider, batchSize int) *terrain.Analyzer {
	return terrain.NewAnalyzer(p, terrain.NewMemoryCache(), batchSize, discardLogger(), observability.NewMetricsForTesting())
}

// region builds a square geometry whose side gives the requested grid size.
func region(side float64) domain.Geometry {
	return domain.NewGeometry(orb.Polygon{{{13, -9}, {13 + side, -9}, {13 + side, -9 + side}, {13, -9 + side}, {13, -9}}})
}

// --- tests ---

func TestAnalyze_NoValidElevationsReturnsFallback(t *testing.T) {
	provider := &mockElevation{elevate: func(orb.Point) *float64 { return nil }}
	a := newAnalyzer(provider, 100)

	stats, err := a.Analyze(context.Background(), region(0.2))

	require.NoError(t, err)
	assert.Equal(t, domain.FallbackTerrain, stats)
}

func TestAnalyze_NegativeElevationsAreInvalid(t *testing.T) {
	provider := &mockElevation{elevate: constant(-32768)}
	a := newAnalyzer(provider, 100)

	stats, err := a.Analyze(context.Background(), region(0.2))

	require.NoError(t, err)
	assert.Equal(t, domain.FallbackTerrain, stats)
}

func TestAnalyze_AllBatchesFailReturnsFallback(t *testing.T) {
	provider := &mockElevation{failOn: map[int]bool{0: true, 1: true, 2: true}, elevate: constant(10)}
	a := newAnalyzer(provider, 100)

	stats, err := a.Analyze(context.Background(), region(2))

	require.NoError(t, err)
	assert.Equal(t, domain.FallbackTerrain, stats)
	assert.Equal(t, int32(3), provider.calls.Load(), "225 points in batches of 100")
}

func TestAnalyze_FailedBatchMarksPointsMissing(t *testing.T) {
	provider := &mockElevation{failOn: map[int]bool{1: true}, elevate: constant(120)}
	a := newAnalyzer(provider, 30)

	// area 0.25 → 10×10 grid
	stats, err := a.Analyze(context.Background(), region(0.5))

	require.NoError(t, err)
	assert.Equal(t, []int{30, 30, 30, 10}, provider.sizes)
	assert.Equal(t, 70, stats.PointsSampled)
	assert.Equal(t, 120.0, stats.AvgElevation)
	assert.Equal(t, 0.0, stats.ElevationRange)
}

func TestAnalyze_FlatTerrain(t *testing.T) {
	provider := &mockElevation{elevate: constant(55)}
	a := newAnalyzer(provider, 100)

	stats, err := a.Analyze(context.Background(), region(0.1))

	require.NoError(t, err)
	assert.Equal(t, 25, stats.PointsSampled)
	assert.Equal(t, 55.0, stats.AvgElevation)
	assert.Equal(t, 55.0, stats.MinElevation)
	assert.Equal(t, 55.0, stats.MaxElevation)
	assert.GreaterOrEqual(t, stats.MaxFlowAccumulation, 1.0)
}

func TestAnalyze_StatsInvariants(t *testing.T) {
	// Elevation rises to the north and east.
	provider := &mockElevation{elevate: func(p orb.Point) *float64 {
		z := (p.Lat()+10)*100 + (p.Lon()-12)*50
		return &z
	}}
	a := newAnalyzer(provider, 100)

	stats, err := a.Analyze(context.Background(), region(1.5))

	require.NoError(t, err)
	assert.Equal(t, 225, stats.PointsSampled)
	assert.LessOrEqual(t, stats.MinElevation, stats.AvgElevation)
	assert.LessOrEqual(t, stats.AvgElevation, stats.MaxElevation)
	assert.InDelta(t, stats.MaxElevation-stats.MinElevation, stats.ElevationRange, 1e-9)
	assert.Greater(t, stats.MaxFlowAccumulation, 1.0)
}

func TestAnalyze_CachesByCentroid(t *testing.T) {
	provider := &mockElevation{elevate: constant(300)}
	cache := terrain.NewMemoryCache()
	a := terrain.NewAnalyzer(provider, cache, 100, discardLogger(), observability.NewMetricsForTesting())
	g := region(0.2)

	first, err := a.Analyze(context.Background(), g)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestAnalyze_PreseededCacheSkipsProvider(t *testing.T) {
	provider := &mockElevation{elevate: constant(300)}
	cache := terrain.NewMemoryCache()
	g := region(0.2)
	seeded := domain.TerrainStats{AvgElevation: 12, MinElevation: 10, MaxElevation: 14, ElevationRange: 4, MaxFlowAccumulation: 3, PointsSampled: 25}
	require.NoError(t, cache.Add(context.Background(), terrain.CacheKey(g.Centroid), seeded))

	a := terrain.NewAnalyzer(provider, cache, 100, discardLogger(), observability.NewMetricsForTesting())
	stats, err := a.Analyze(context.Background(), g)

	require.NoError(t, err)
	assert.Equal(t, seeded, stats)
	assert.Equal(t, int32(0), provider.calls.Load())
}

func TestAnalyze_CanceledContext(t *testing.T) {
	provider := &mockElevation{elevate: constant(300)}
	cache := terrain.NewMemoryCache()
	a := terrain.NewAnalyzer(provider, cache, 100, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, region(0.2))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, cache.Len())
}

func TestGridSize(t *testing.T) {
	tests := []struct {
		area     float64
		expected int
	}{
		{2.5, 15},
		{1.0, 10},
		{0.5, 10},
		{0.1, 5},
		{0.0004, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, terrain.GridSize(tt.area), "area %v", tt.area)
	}
}

func TestSampleGrid(t *testing.T) {
	b := orb.Bound{Min: orb.Point{13, -9}, Max: orb.Point{14, -8}}

	points := terrain.SampleGrid(b, 5)

	require.Len(t, points, 25)
	assert.Equal(t, orb.Point{13, -9}, points[0])
	assert.Equal(t, orb.Point{14, -9}, points[4])
	assert.Equal(t, orb.Point{13, -8}, points[20])
	assert.Equal(t, orb.Point{14, -8}, points[24])
	assert.InDelta(t, 13.25, points[1].Lon(), 1e-12)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "-8.8383,13.2344", terrain.CacheKey(orb.Point{13.23441, -8.83829}))
}

func TestSummarize_ShortInputTreatedAsMissing(t *testing.T) {
	z := 40.0
	stats := terrain.Summarize([]*float64{&z, &z}, 5)

	assert.Equal(t, 2, stats.PointsSampled)
	assert.Equal(t, 40.0, stats.AvgElevation)
}
