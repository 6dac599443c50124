package search

import (
	"context"

	"git.fiblab.net/sim/isochrone/layer"
	"github.com/paulmach/orb"
)

// Geometry consolidates service-area fragments.
type Geometry interface {
	UnionGeometries(parts ...orb.MultiLineString) (orb.MultiLineString, error)
	Dissolve(g orb.MultiLineString) (orb.MultiLineString, error)
}

// Network answers the spatial and network queries issued while expanding
// candidates. Costs are in hours, distances in feet, speeds in feet per hour.
type Network interface {
	Geometry

	Stop(id layer.LocationID) (layer.Stop, bool)
	RouteStop(id layer.LocationID) (layer.RouteStop, bool)
	// ResolveStop maps a route stop's stop_id to its pedestrian stop.
	ResolveStop(stopID int64) (layer.Stop, bool)
	DepartingTrips(stopID int64) []layer.RouteStop
	Route(trip layer.TripKey) (layer.Route, bool)

	BufferRegion(center orb.Point, radius float64) layer.Region
	ClipStreets(region layer.Region) (layer.Selection, error)
	ClipRouteStops(region layer.Region) (layer.Selection, error)
	RestrictToRouteDirection(trip layer.TripKey) (network, stops layer.Selection, err error)

	ShortestPathsToTargets(ctx context.Context, origin orb.Point, network, targets layer.Selection, speed float64) ([]layer.PathCost, error)
	ServiceAreaFromPoint(ctx context.Context, origin orb.Point, network layer.Selection, speed, budget float64) (orb.MultiLineString, error)
}
