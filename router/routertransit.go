package router

import (
	"context"
	"math"
	"sort"

	"git.fiblab.net/sim/isochrone/layer"
	"git.fiblab.net/sim/isochrone/router/algo"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

const (
	// 站点距线路超过该距离时告警，英尺
	STOP_ROUTE_WARN_DISTANCE = 100
	// 线性参考的容差
	ALONG_EPSILON = 1e-6
)

func (r *Router) buildTransitGraph() {
	transitGraph := algo.NewSearchGraph[transitEdgeAttr]()
	for _, trip := range r.Trips() {
		route := r.routes[trip]
		// 按fid即停靠顺序，每站只投影到上一站之后的线路上
		sort.Slice(route.Stops, func(i, j int) bool { return route.Stops[i].ID < route.Stops[j].ID })
		along := 0.0
		for _, rs := range route.Stops {
			var offset float64
			rs.S, offset = projectFrom(route.Geometry, rs.Point, along)
			if offset > STOP_ROUTE_WARN_DISTANCE {
				log.Warnf("route stop %d is %.1f ft away from route %v", rs.ID, offset, trip)
			}
			along = rs.S
		}
		for _, rs := range route.Stops {
			rs.TransitNodeId = transitGraph.InitNode()
		}
		// 只在行驶方向上连接相邻站点
		for i := 0; i+1 < len(route.Stops); i++ {
			from, to := route.Stops[i], route.Stops[i+1]
			transitGraph.InitEdge(
				from.TransitNodeId, to.TransitNodeId,
				to.S-from.S,
				transitEdgeAttr{Trip: trip},
			)
		}
	}
	r.transitGraph = transitGraph
}

func (r *Router) transitPathsToTargets(
	ctx context.Context,
	origin orb.Point, network, targets layer.Selection, speed float64,
) ([]layer.PathCost, error) {
	allowed := make(map[layer.TripKey]bool)
	// 起点在各条线路上的位置
	starts := make(map[layer.TripKey]float64)
	seeds := []algo.Seed{}
	for _, id := range network.IDs {
		route, ok := r.routeByID[id]
		if !ok {
			return nil, errNotFound(layer.KindRoute, id)
		}
		allowed[route.TripKey] = true
		if len(route.Stops) == 0 {
			continue
		}
		s, _ := project(route.Geometry, origin)
		starts[route.TripKey] = s
		// 从起点之后的第一个站点上车
		i := sort.Search(len(route.Stops), func(i int) bool {
			return route.Stops[i].S >= s-ALONG_EPSILON
		})
		if i < len(route.Stops) {
			seeds = append(seeds, algo.Seed{
				Node: route.Stops[i].TransitNodeId,
				Cost: math.Max(0, route.Stops[i].S-s),
			})
		}
	}
	tree := r.transitGraph.ShortestPaths(seeds, 0, func(from, to int, attr transitEdgeAttr) bool {
		return allowed[attr.Trip]
	})
	results := make([]layer.PathCost, 0, len(targets.IDs))
	for _, id := range targets.IDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs, ok := r.routeStops[id]
		if !ok {
			return nil, errNotFound(layer.KindRouteStop, id)
		}
		pc := layer.PathCost{Target: rs.RouteStop, Cost: math.Inf(0)}
		if allowed[rs.TripKey] && rs.TransitNodeId >= 0 {
			if d := tree.Cost(rs.TransitNodeId); !math.IsInf(d, 0) {
				pc.Cost = d / speed
				pc.Path = subLine(r.routes[rs.TripKey].Geometry, starts[rs.TripKey], rs.S)
			}
		}
		results = append(results, pc)
	}
	return results, nil
}

func (r *Router) routeSelection(trips ...layer.TripKey) layer.Selection {
	ids := lo.FilterMap(trips, func(trip layer.TripKey, _ int) (layer.LocationID, bool) {
		route, ok := r.routes[trip]
		if !ok {
			return 0, false
		}
		return route.ID, true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return layer.Selection{Layer: layer.KindRoute, IDs: ids}
}
