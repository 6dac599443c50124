package router

import (
	"context"
	"fmt"

	"git.fiblab.net/sim/isochrone/layer"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

func errNotFound(kind layer.Kind, id layer.LocationID) error {
	return fmt.Errorf("%v(fid=%d) %w", kind, id, ErrNotFound)
}

// BufferRegion returns the circle of radius around center.
func (r *Router) BufferRegion(center orb.Point, radius float64) layer.Region {
	if radius < 0 {
		radius = 0
	}
	return layer.Region{Center: center, Radius: radius}
}

// ClipStreets selects the streets touching region.
func (r *Router) ClipStreets(region layer.Region) (layer.Selection, error) {
	sel := layer.Selection{Layer: layer.KindStreet, IDs: []layer.LocationID{}}
	bound := region.Bound()
	for _, id := range r.streetIDs {
		s := r.streets[id]
		if !s.bound.Intersects(bound) {
			continue
		}
		if planar.DistanceFrom(s.Geometry, region.Center) <= region.Radius {
			sel.IDs = append(sel.IDs, id)
		}
	}
	return sel, nil
}

// ClipRouteStops selects the route stops inside region.
func (r *Router) ClipRouteStops(region layer.Region) (layer.Selection, error) {
	sel := layer.Selection{Layer: layer.KindRouteStop, IDs: []layer.LocationID{}}
	for _, id := range r.routeStopIDs {
		if planar.Distance(r.routeStops[id].Point, region.Center) <= region.Radius {
			sel.IDs = append(sel.IDs, id)
		}
	}
	return sel, nil
}

// RestrictToRouteDirection selects the route and its stops of one trip
// pattern. Unknown trips give empty selections.
func (r *Router) RestrictToRouteDirection(trip layer.TripKey) (network, stops layer.Selection, err error) {
	network = r.routeSelection(trip)
	stops = layer.Selection{Layer: layer.KindRouteStop, IDs: []layer.LocationID{}}
	if route, ok := r.routes[trip]; ok {
		for _, rs := range route.Stops {
			stops.IDs = append(stops.IDs, rs.ID)
		}
	}
	return network, stops, nil
}

// ShortestPathsToTargets computes the travel time in hours from origin to
// every target over network at speed (feet per hour). Unreachable targets
// have an infinite cost. Only route networks return path geometry.
func (r *Router) ShortestPathsToTargets(
	ctx context.Context,
	origin orb.Point, network, targets layer.Selection, speed float64,
) (pcs []layer.PathCost, err error) {
	// panic recover
	defer func() {
		if e := recover(); e != nil {
			pcs = nil
			err = fmt.Errorf("panic: ShortestPathsToTargets %v with input origin=%v, network=%v", e, origin, network.Layer)
			log.Errorln(err)
		}
	}()
	if speed <= 0 {
		return nil, fmt.Errorf("invalid speed %v", speed)
	}
	if targets.Layer != layer.KindRouteStop {
		return nil, fmt.Errorf("targets %v: %w", targets.Layer, ErrUnsupportedLayer)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch network.Layer {
	case layer.KindStreet:
		return r.walkPathsToTargets(ctx, origin, network, targets, speed)
	case layer.KindRoute:
		return r.transitPathsToTargets(ctx, origin, network, targets, speed)
	default:
		return nil, fmt.Errorf("network %v: %w", network.Layer, ErrUnsupportedLayer)
	}
}

// ServiceAreaFromPoint returns the part of the street network reachable from
// origin within budget hours at speed. Transit areas come from the paths of
// ShortestPathsToTargets instead.
func (r *Router) ServiceAreaFromPoint(
	ctx context.Context,
	origin orb.Point, network layer.Selection, speed, budget float64,
) (area orb.MultiLineString, err error) {
	// panic recover
	defer func() {
		if e := recover(); e != nil {
			area = nil
			err = fmt.Errorf("panic: ServiceAreaFromPoint %v with input origin=%v, network=%v", e, origin, network.Layer)
			log.Errorln(err)
		}
	}()
	if speed <= 0 {
		return nil, fmt.Errorf("invalid speed %v", speed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if network.Layer != layer.KindStreet {
		return nil, fmt.Errorf("network %v: %w", network.Layer, ErrUnsupportedLayer)
	}
	return r.walkServiceArea(ctx, origin, network, speed, budget)
}
