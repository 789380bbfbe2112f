package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flood_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// flood risk engine.
type Metrics struct {
	// Simulation metrics.
	Simulations        *prometheus.CounterVec   // labels: level, outcome={success,error}
	SimulationDuration *prometheus.HistogramVec // labels: level
	RegionsAnalyzed    prometheus.Counter
	RegionsFlooded     prometheus.Counter
	RegionsSkipped     prometheus.Counter     // resolved features without reference data
	RecorderErrors     *prometheus.CounterVec // labels: recorder

	// Geometry metrics.
	NameResolutions *prometheus.CounterVec // labels: level, method={exact,normalized,substring,parent_centroid,default_point}
	GeometryFetches *prometheus.CounterVec // labels: level, outcome={success,error}
	GeometryCache   *prometheus.CounterVec // labels: level, result={hit,miss}

	// Terrain metrics.
	ElevationRequests    *prometheus.CounterVec // labels: outcome={success,error}
	ElevationAPIDuration prometheus.Histogram
	TerrainCache         *prometheus.CounterVec // labels: result={hit,miss}
	TerrainFallbacks     prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Simulation requests by level and outcome.",
		}, []string{"level", "outcome"}),
		SimulationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_duration_seconds",
			Help:      "Duration of a complete region-set simulation.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"level"}),
		RegionsAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_analyzed_total",
			Help:      "Regions scored across all simulations.",
		}),
		RegionsFlooded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_flooded_total",
			Help:      "Regions scored as flooded across all simulations.",
		}),
		RegionsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_skipped_total",
			Help:      "Boundary features skipped for lack of reference data.",
		}),
		RecorderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorder_errors_total",
			Help:      "Failures recording completed simulations, by recorder.",
		}, []string{"recorder"}),
		NameResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "name_resolutions_total",
			Help:      "Region name resolutions by level and method.",
		}, []string{"level", "method"}),
		GeometryFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geometry_fetches_total",
			Help:      "Boundary downloads by level and outcome.",
		}, []string{"level", "outcome"}),
		GeometryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geometry_cache_total",
			Help:      "Boundary cache lookups by level and result.",
		}, []string{"level", "result"}),
		ElevationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_requests_total",
			Help:      "Elevation batch requests by outcome.",
		}, []string{"outcome"}),
		ElevationAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "elevation_api_duration_seconds",
			Help:      "Elevation provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		TerrainCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terrain_cache_total",
			Help:      "Terrain statistics cache lookups by result.",
		}, []string{"result"}),
		TerrainFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terrain_fallbacks_total",
			Help:      "Terrain analyses that fell back to default statistics.",
		}),
	}

	prometheus.MustRegister(
		m.Simulations,
		m.SimulationDuration,
		m.RegionsAnalyzed,
		m.RegionsFlooded,
		m.RegionsSkipped,
		m.RecorderErrors,
		m.NameResolutions,
		m.GeometryFetches,
		m.GeometryCache,
		m.ElevationRequests,
		m.ElevationAPIDuration,
		m.TerrainCache,
		m.TerrainFallbacks,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Simulations:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "simulations_total"}, []string{"level", "outcome"}),
		SimulationDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "simulation_duration_seconds"}, []string{"level"}),
		RegionsAnalyzed:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "regions_analyzed_total"}),
		RegionsFlooded:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "regions_flooded_total"}),
		RegionsSkipped:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "regions_skipped_total"}),
		RecorderErrors:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "recorder_errors_total"}, []string{"recorder"}),
		NameResolutions:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "name_resolutions_total"}, []string{"level", "method"}),
		GeometryFetches:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geometry_fetches_total"}, []string{"level", "outcome"}),
		GeometryCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geometry_cache_total"}, []string{"level", "result"}),
		ElevationRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "elevation_requests_total"}, []string{"outcome"}),
		ElevationAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "elevation_api_duration_seconds"}),
		TerrainCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "terrain_cache_total"}, []string{"result"}),
		TerrainFallbacks:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "terrain_fallbacks_total"}),
	}
}

// NewCacheGauges reports cache sizes at scrape time: boundary sets held by the
// geometry resolver and entries in the in-process terrain cache.
func NewCacheGauges(geometryLevels, terrainEntries func() int) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geometry_cache_levels",
			Help:      "Boundary sets held in memory, one per country and level.",
		}, func() float64 { return float64(geometryLevels()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "terrain_cache_entries",
			Help:      "Terrain statistics held in the in-process cache.",
		}, func() float64 { return float64(terrainEntries()) }),
	}
}
