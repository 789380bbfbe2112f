// Package geometry resolves administrative regions to boundary polygons.
//
// Boundary sets are fetched once per (country, level) and kept for the life
// of the process. Reference names are matched against feature names exactly,
// then by normalized equality, then by normalized containment. Regions that
// still have no polygon fall back to their parent's centroid, then to a fixed
// point in Luanda.
package geometry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/couchcryptid/flood-risk-engine/internal/observability"
	"github.com/paulmach/orb"
	"golang.org/x/sync/singleflight"
)

// DefaultPoint is the Luanda city centroid, used when neither a region nor
// its parent can be located.
var DefaultPoint = orb.Point{13.2344, -8.8383}

// FallbackWindow is the half-width in degrees of the terrain window sampled
// around a fallback point.
const FallbackWindow = 0.01

// Location is where a region was resolved to.
type Location struct {
	Geometry    domain.Geometry
	Method      domain.ResolutionMethod
	FeatureName string // matched feature, or the parent feature for FallbackParent
}

// Resolver fetches and caches boundary features and matches regions to them.
type Resolver struct {
	provider     domain.GeometryProvider
	fetchTimeout time.Duration
	features     sync.Map // cacheKey -> []domain.PolygonFeature
	group        singleflight.Group
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewResolver creates a Resolver with an empty cache. fetchTimeout bounds
// each provider fetch; zero leaves it to the provider.
func NewResolver(provider domain.GeometryProvider, fetchTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		provider:     provider,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		metrics:      metrics,
	}
}

func cacheKey(countryCode string, level domain.Level) string {
	return fmt.Sprintf("%s_%d", countryCode, level.Depth())
}

// Resolve returns the features of one level. The first call per
// (countryCode, level) fetches from the provider; concurrent first calls
// share a single fetch. The shared fetch is not cancelled with any one
// caller: a caller whose ctx ends stops waiting and gets ctx's error, while
// the fetch runs on to fill the cache. Failures are not cached and wrap
// domain.ErrProviderUnavailable.
func (r *Resolver) Resolve(ctx context.Context, countryCode string, level domain.Level) ([]domain.PolygonFeature, error) {
	key := cacheKey(countryCode, level)
	if v, ok := r.features.Load(key); ok {
		r.metrics.GeometryCache.WithLabelValues(string(level), "hit").Inc()
		return v.([]domain.PolygonFeature), nil
	}
	r.metrics.GeometryCache.WithLabelValues(string(level), "miss").Inc()

	ch := r.group.DoChan(key, func() (any, error) {
		if v, ok := r.features.Load(key); ok {
			return v, nil
		}
		fetchCtx, cancel := r.fetchContext(ctx)
		defer cancel()

		features, err := r.provider.FetchFeatures(fetchCtx, countryCode, level)
		if err != nil {
			r.metrics.GeometryFetches.WithLabelValues(string(level), "error").Inc()
			return nil, fmt.Errorf("%w: fetch %s boundaries: %w", domain.ErrProviderUnavailable, key, err)
		}
		r.metrics.GeometryFetches.WithLabelValues(string(level), "success").Inc()
		actual, _ := r.features.LoadOrStore(key, features)
		r.logger.Info("boundaries cached", "key", key, "features", len(features))
		return actual, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.PolygonFeature), nil
	}
}

func (r *Resolver) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if r.fetchTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, r.fetchTimeout)
}

// CachedLevels returns the number of (country, level) boundary sets held.
func (r *Resolver) CachedLevels() int {
	n := 0
	r.features.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Locate finds the polygon for region. A fetch failure at the region's own
// level is returned as an error; a miss is resolved through the fallback
// chain and never fails.
func (r *Resolver) Locate(ctx context.Context, countryCode string, region domain.AdministrativeRegion) (Location, error) {
	features, err := r.Resolve(ctx, countryCode, region.Level)
	if err != nil {
		return Location{}, err
	}

	candidates := features
	if parentLevel, ok := region.Level.Parent(); ok && region.ParentName != "" {
		candidates = WithParent(features, parentLevel, region.ParentName)
		// A municipality name can recur across provinces.
		if _, ok := parentLevel.Parent(); ok && region.ProvinceName != "" {
			if narrowed := WithParent(candidates, domain.LevelProvince, region.ProvinceName); len(narrowed) > 0 {
				candidates = narrowed
			}
		}
	}
	if f, method, ok := Match(region.Name, candidates); ok {
		r.record(region, method)
		return Location{Geometry: f.Geometry, Method: method, FeatureName: f.Name}, nil
	}

	loc := r.fallback(ctx, countryCode, region)
	r.record(region, loc.Method)
	r.logger.Warn("region not matched, using fallback location",
		"region", region.Name,
		"level", region.Level,
		"parent", region.ParentName,
		"method", loc.Method,
		"lat", loc.Geometry.Centroid.Lat(),
		"lon", loc.Geometry.Centroid.Lon(),
	)
	return loc, nil
}

func (r *Resolver) fallback(ctx context.Context, countryCode string, region domain.AdministrativeRegion) Location {
	defaultLocation := Location{
		Geometry: domain.PointGeometry(DefaultPoint, FallbackWindow),
		Method:   domain.FallbackDefault,
	}

	parentLevel, ok := region.Level.Parent()
	if !ok || region.ParentName == "" {
		return defaultLocation
	}

	parents, err := r.Resolve(ctx, countryCode, parentLevel)
	if err != nil {
		r.logger.Warn("parent boundaries unavailable", "level", parentLevel, "error", err)
		return defaultLocation
	}
	if grandparentLevel, ok := parentLevel.Parent(); ok && region.ProvinceName != "" {
		if narrowed := WithParent(parents, grandparentLevel, region.ProvinceName); len(narrowed) > 0 {
			parents = narrowed
		}
	}

	parent, _, ok := Match(region.ParentName, parents)
	if !ok {
		return defaultLocation
	}
	return Location{
		Geometry:    domain.PointGeometry(parent.Geometry.Centroid, FallbackWindow),
		Method:      domain.FallbackParent,
		FeatureName: parent.Name,
	}
}

func (r *Resolver) record(region domain.AdministrativeRegion, method domain.ResolutionMethod) {
	r.metrics.NameResolutions.WithLabelValues(string(region.Level), string(method)).Inc()
}
