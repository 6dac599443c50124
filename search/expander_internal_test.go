package search

import (
	"context"
	"testing"

	"git.fiblab.net/sim/isochrone/layer"
	"git.fiblab.net/sim/isochrone/layer/layertest"
	"git.fiblab.net/sim/isochrone/router"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExpander(t *testing.T, budget float64) (*Expander, *router.Router) {
	return newTestExpanderOn(t, layertest.Grid(), budget)
}

func newTestExpanderOn(t *testing.T, ds *layer.Dataset, budget float64) (*Expander, *router.Router) {
	r, err := router.New(ds)
	require.NoError(t, err)
	opts := Options{}.withDefaults()
	walking := NewRegistry(Walking, budget, opts.RepeatThreshold)
	transit := NewRegistry(Transit, budget, opts.RepeatThreshold)
	return &Expander{
		network:     r,
		opts:        opts,
		budget:      budget,
		walking:     walking,
		transit:     transit,
		frontier:    NewFrontier(walking, transit),
		walkArea:    NewAccumulator(Walking, r, opts.ConsolidateThreshold),
		transitArea: NewAccumulator(Transit, r, opts.ConsolidateThreshold),
	}, r
}

func routeStopAt(t *testing.T, r *router.Router, trip layer.TripKey, p orb.Point) layer.RouteStop {
	for _, id := range r.RouteStopIDs() {
		rs, _ := r.RouteStop(id)
		if rs.TripKey == trip && rs.Point.Equal(p) {
			return rs
		}
	}
	require.FailNow(t, "route stop not found", "%v at %v", trip, p)
	return layer.RouteStop{}
}

func originCandidate(t *testing.T, r *router.Router) Candidate {
	rs, ok := r.RouteStop(layertest.OriginRouteStop)
	require.True(t, ok)
	return Candidate{
		Location: rs.ID, Layer: layer.KindRouteStop, Mode: Transit,
		Trip: rs.TripKey, IsOrigin: true, At: rs.Point,
	}
}

func TestExpandTransitPruning(t *testing.T) {
	e, r := newTestExpander(t, 0.15)
	c := originCandidate(t, r)
	e.transit.Admit(c.Location, 0)

	east := layer.TripKey{Route: layertest.EastWestRoute}
	next := routeStopAt(t, r, east, orb.Point{6000, 5000})
	blocked := routeStopAt(t, r, east, orb.Point{7000, 5000})
	beyond := routeStopAt(t, r, east, orb.Point{8000, 5000})
	// 7000处已有更早的到达记录
	e.transit.Admit(blocked.ID, 0.001)

	require.NoError(t, e.Expand(context.Background(), c))

	tm, ok := e.transit.Lookup(next.ID)
	require.True(t, ok)
	assert.InDelta(t, 1000.0/60000, tm, 1e-9)
	tm, _ = e.transit.Lookup(blocked.ID)
	assert.Equal(t, 0.001, tm)
	_, ok = e.transit.Lookup(beyond.ID)
	assert.False(t, ok)

	// 只在保留的站点下车步行
	stop, _ := r.ResolveStop(next.StopID)
	_, ok = e.walking.Lookup(stop.ID)
	assert.True(t, ok)
	stop, _ = r.ResolveStop(beyond.StopID)
	_, ok = e.walking.Lookup(stop.ID)
	assert.False(t, ok)
}

func TestExpandTransitTransfer(t *testing.T) {
	e, r := newTestExpander(t, 0.15)
	c := originCandidate(t, r)
	e.transit.Admit(c.Location, 0)
	require.NoError(t, e.Expand(context.Background(), c))

	// 中心站点换乘9路，候车1/(2*12)小时
	north := routeStopAt(t, r, layer.TripKey{Route: layertest.NorthSouthRoute}, orb.Point{5000, 5000})
	tm, ok := e.transit.Lookup(north.ID)
	require.True(t, ok)
	assert.InDelta(t, 1.0/24, tm, 1e-12)

	// 同一线路方向不换乘
	west := routeStopAt(t, r, layer.TripKey{Route: layertest.EastWestRoute, Direction: 1}, orb.Point{5000, 5000})
	tm, ok = e.transit.Lookup(west.ID)
	require.True(t, ok)
	assert.InDelta(t, 1.0/12, tm, 1e-12)

	area := e.transitArea.Area()
	assert.NotEmpty(t, area.Geometry)
	assert.Positive(t, e.frontier.Len())
}

func TestExpandWalkingOriginWait(t *testing.T) {
	for _, waitAtOrigin := range []bool{false, true} {
		e, r := newTestExpander(t, 0.15)
		e.opts.WaitAtOrigin = waitAtOrigin
		c := Candidate{
			Location: layer.OriginLocation, Layer: layer.KindPoint, Mode: Walking,
			IsOrigin: true, At: orb.Point{5000, 5000},
		}
		e.walking.Admit(c.Location, 0)
		require.NoError(t, e.Expand(context.Background(), c))

		tm, ok := e.transit.Lookup(layertest.OriginRouteStop)
		require.True(t, ok)
		if waitAtOrigin {
			assert.InDelta(t, 1.0/12, tm, 1e-9)
		} else {
			assert.InDelta(t, 0, tm, 1e-9)
		}
		assert.NotEmpty(t, e.walkArea.Area().Geometry)

		// 停运线路不产生公交候选点
		for _, id := range r.RouteStopIDs() {
			rs, _ := r.RouteStop(id)
			if rs.Route == layertest.DeadRoute {
				_, ok := e.transit.Lookup(id)
				assert.False(t, ok)
			}
		}
	}
}

func TestExpandWalkingWithoutStreets(t *testing.T) {
	e, _ := newTestExpander(t, 0.15)
	// 步行范围内没有任何街道
	c := Candidate{
		Location: layer.OriginLocation, Layer: layer.KindPoint, Mode: Walking,
		IsOrigin: true, At: orb.Point{-50000, -50000},
	}
	e.walking.Admit(c.Location, 0)
	require.NoError(t, e.Expand(context.Background(), c))

	assert.Equal(t, 0, e.frontier.Len())
	assert.Equal(t, 1, e.walking.Len())
	assert.Equal(t, 0, e.transit.Len())
	assert.Equal(t, ServiceArea{}, e.walkArea.Area())
}

func TestExpandTransitTripWithoutStops(t *testing.T) {
	ds := layertest.Grid()
	// 有线路几何但没有任何站点的线路方向
	empty := layer.TripKey{Route: 31}
	ds.Routes = append(ds.Routes, layer.Route{
		ID: 31, TripKey: empty, TripsPerHour: 6, KFeetPerHour: 40,
		Geometry: orb.LineString{{0, 2000}, {10000, 2000}},
	})
	e, r := newTestExpanderOn(t, ds, 0.15)
	_, ok := r.Route(empty)
	require.True(t, ok)

	c := Candidate{
		Location: 9931, Layer: layer.KindRouteStop, Mode: Transit,
		Trip: empty, At: orb.Point{5000, 2000},
	}
	e.transit.Admit(c.Location, 0)
	require.NoError(t, e.Expand(context.Background(), c))

	assert.Equal(t, 0, e.frontier.Len())
	assert.Equal(t, 1, e.transit.Len())
	assert.Equal(t, 0, e.walking.Len())
	assert.Equal(t, ServiceArea{}, e.transitArea.Area())
}
