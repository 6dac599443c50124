package router

import (
	"errors"
	"fmt"
	"sort"

	"git.fiblab.net/sim/isochrone/layer"
	"git.fiblab.net/sim/isochrone/router/algo"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "router")

var (
	ErrNotFound         = errors.New("feature not found")
	ErrUnsupportedLayer = errors.New("unsupported layer")
	ErrInvalidFrequency = errors.New("trips per hour must be non-negative")
)

const (
	// 缺省线路速度，千英尺/小时
	DEFAULT_K_FEET_PER_HOUR = 50
)

type Router struct {
	// walkGraph Topo
	// 1. 拓扑中的点为街道端点，坐标重合的端点合并为同一个点
	// 2. 每条街道对应两条有向边，attr[street=fid]，长度为街道长度（英尺）
	// 3. 站点不作为图中的点，而是吸附到最近的街道上，查询时按线性参考补齐首末段
	//
	// transitGraph Topo
	// 1. 拓扑中的点为route stop，按fid顺序投影到线路上
	// 2. 同一线路方向上按行驶顺序连接相邻站点，attr[trip]，边长为两站在线路上的距离
	streets    map[layer.LocationID]*Street
	stops      map[layer.LocationID]*Stop
	routeStops map[layer.LocationID]*RouteStop
	routes     map[layer.TripKey]*Route

	// 按fid排序，裁剪时保证输出顺序
	streetIDs    []layer.LocationID
	routeStopIDs []layer.LocationID
	routeByID    map[layer.LocationID]*Route

	// stop_id -> 步行站点 / 所有方向的route stop
	stopByStopID       map[int64]*Stop
	routeStopsByStopID map[int64][]*RouteStop

	walkGraph    *algo.SearchGraph[walkEdgeAttr]
	transitGraph *algo.SearchGraph[transitEdgeAttr]

	// 保护线路班次
	mu *xsync.RBMutex
}

func New(ds *layer.Dataset) (*Router, error) {
	r := &Router{mu: xsync.NewRBMutex()}
	if err := r.initDataset(ds); err != nil {
		return nil, err
	}
	r.buildWalkGraph()
	r.snapStops()
	r.buildTransitGraph()
	log.Infof("router ready: %v, walk nodes=%d, transit nodes=%d",
		ds, r.walkGraph.NodeCount(), r.transitGraph.NodeCount())
	return r, nil
}

// getter

func (r *Router) HasStop(id layer.LocationID) bool {
	_, ok := r.stops[id]
	return ok
}

func (r *Router) HasRouteStop(id layer.LocationID) bool {
	_, ok := r.routeStops[id]
	return ok
}

func (r *Router) Stop(id layer.LocationID) (layer.Stop, bool) {
	s, ok := r.stops[id]
	if !ok {
		return layer.Stop{}, false
	}
	return s.Stop, true
}

func (r *Router) RouteStop(id layer.LocationID) (layer.RouteStop, bool) {
	s, ok := r.routeStops[id]
	if !ok {
		return layer.RouteStop{}, false
	}
	return s.RouteStop, true
}

// RouteStopIDs returns all route stop fids in ascending order.
func (r *Router) RouteStopIDs() []layer.LocationID {
	return r.routeStopIDs
}

// ResolveStop maps the stop_id carried by a route stop to the pedestrian stop
// record. ok is false when no pedestrian stop shares the stop_id.
func (r *Router) ResolveStop(stopID int64) (layer.Stop, bool) {
	s, ok := r.stopByStopID[stopID]
	if !ok {
		return layer.Stop{}, false
	}
	return s.Stop, true
}

// DepartingTrips returns every route stop served at stopID, ordered by trip.
func (r *Router) DepartingTrips(stopID int64) []layer.RouteStop {
	return lo.Map(r.routeStopsByStopID[stopID], func(s *RouteStop, _ int) layer.RouteStop {
		return s.RouteStop
	})
}

func (r *Router) Route(trip layer.TripKey) (layer.Route, bool) {
	token := r.mu.RLock()
	defer r.mu.RUnlock(token)
	route, ok := r.routes[trip]
	if !ok {
		return layer.Route{}, false
	}
	return route.Route, true
}

// Trips returns all trip patterns in route/direction order.
func (r *Router) Trips() []layer.TripKey {
	trips := lo.Keys(r.routes)
	sort.Slice(trips, func(i, j int) bool { return trips[i].Less(trips[j]) })
	return trips
}

// setter

func (r *Router) GetTripsPerHour(trip layer.TripKey) (float64, error) {
	token := r.mu.RLock()
	defer r.mu.RUnlock(token)
	route, ok := r.routes[trip]
	if !ok {
		return 0, fmt.Errorf("route(trip=%v) %w", trip, ErrNotFound)
	}
	return route.TripsPerHour, nil
}

func (r *Router) SetTripsPerHour(trip layer.TripKey, tripsPerHour float64) error {
	if tripsPerHour < 0 {
		return ErrInvalidFrequency
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	route, ok := r.routes[trip]
	if !ok {
		return fmt.Errorf("route(trip=%v) %w", trip, ErrNotFound)
	}
	route.TripsPerHour = tripsPerHour
	return nil
}

// close
func (r *Router) Close() {}
