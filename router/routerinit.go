package router

import (
	"fmt"
	"sort"

	"git.fiblab.net/sim/isochrone/layer"
	"github.com/paulmach/orb/planar"
	"github.com/samber/lo"
)

// 将Dataset中的数组转换为索引
func (r *Router) initDataset(ds *layer.Dataset) error {
	r.streets = make(map[layer.LocationID]*Street, len(ds.Streets))
	for _, s := range ds.Streets {
		if len(s.Geometry) < 2 {
			log.Warnf("skip street %d with %d points", s.ID, len(s.Geometry))
			continue
		}
		if _, ok := r.streets[s.ID]; ok {
			return fmt.Errorf("duplicated street fid %d", s.ID)
		}
		r.streets[s.ID] = &Street{
			Street: s,
			Length: planar.Length(s.Geometry),
			bound:  s.Geometry.Bound(),
		}
	}
	r.stops = make(map[layer.LocationID]*Stop, len(ds.Stops))
	r.stopByStopID = make(map[int64]*Stop, len(ds.Stops))
	for _, s := range ds.Stops {
		if _, ok := r.stops[s.ID]; ok {
			return fmt.Errorf("duplicated stop fid %d", s.ID)
		}
		stop := &Stop{Stop: s}
		r.stops[s.ID] = stop
		// stop_id重复时取fid最小者
		if old, ok := r.stopByStopID[s.StopID]; !ok || s.ID < old.ID {
			r.stopByStopID[s.StopID] = stop
		}
	}
	r.routes = make(map[layer.TripKey]*Route, len(ds.Routes))
	r.routeByID = make(map[layer.LocationID]*Route, len(ds.Routes))
	for _, route := range ds.Routes {
		if _, ok := r.routes[route.TripKey]; ok {
			return fmt.Errorf("duplicated route trip %v", route.TripKey)
		}
		if _, ok := r.routeByID[route.ID]; ok {
			return fmt.Errorf("duplicated route fid %d", route.ID)
		}
		if route.TripsPerHour < 0 {
			return fmt.Errorf("route %v: %w", route.TripKey, ErrInvalidFrequency)
		}
		rt := &Route{Route: route, Length: planar.Length(route.Geometry)}
		r.routes[route.TripKey] = rt
		r.routeByID[route.ID] = rt
	}
	r.routeStops = make(map[layer.LocationID]*RouteStop, len(ds.RouteStops))
	r.routeStopsByStopID = make(map[int64][]*RouteStop)
	for _, s := range ds.RouteStops {
		if _, ok := r.routeStops[s.ID]; ok {
			return fmt.Errorf("duplicated route stop fid %d", s.ID)
		}
		rs := &RouteStop{RouteStop: s, TransitNodeId: -1}
		r.routeStops[s.ID] = rs
		r.routeStopsByStopID[s.StopID] = append(r.routeStopsByStopID[s.StopID], rs)
		if route, ok := r.routes[s.TripKey]; ok {
			route.Stops = append(route.Stops, rs)
		} else {
			log.Warnf("route stop %d refers to unknown route %v", s.ID, s.TripKey)
		}
	}
	for _, rss := range r.routeStopsByStopID {
		sort.Slice(rss, func(i, j int) bool {
			if rss[i].TripKey != rss[j].TripKey {
				return rss[i].TripKey.Less(rss[j].TripKey)
			}
			return rss[i].ID < rss[j].ID
		})
	}

	r.streetIDs = sortedKeys(r.streets)
	r.routeStopIDs = sortedKeys(r.routeStops)
	return nil
}

func sortedKeys[V any](m map[layer.LocationID]V) []layer.LocationID {
	keys := lo.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// 将步行站点和route stop吸附到最近的街道
func (r *Router) snapStops() {
	missed := 0
	for _, id := range sortedKeys(r.stops) {
		s := r.stops[id]
		s.snap = r.snapTo(s.Point, r.streetIDs)
		if !s.snap.ok {
			missed++
		}
	}
	for _, id := range r.routeStopIDs {
		s := r.routeStops[id]
		s.snap = r.snapTo(s.Point, r.streetIDs)
		if !s.snap.ok {
			missed++
		}
	}
	if missed > 0 {
		log.Warnf("%d stops cannot be snapped to any street", missed)
	}
}
