package domain

import (
	"context"

	"github.com/paulmach/orb"
)

// GeometryProvider fetches the named boundary features of one administrative
// level of a country.
type GeometryProvider interface {
	FetchFeatures(ctx context.Context, countryCode string, level Level) ([]PolygonFeature, error)
}

// ElevationProvider looks up point elevations in metres. The result has one
// entry per point, in order; nil marks a point the provider had no value for.
type ElevationProvider interface {
	LookupElevations(ctx context.Context, points []orb.Point) ([]*float64, error)
}
