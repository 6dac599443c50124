// Package layertest builds a small synthetic network for tests.
package layertest

import (
	"git.fiblab.net/sim/isochrone/layer"
	"github.com/paulmach/orb"
)

const (
	// 街道网格间距，英尺
	BlockFeet = 500.0
	// 网格边长，英尺
	GridFeet = 10000.0

	// 东西向线路4（dir=0向东）在x=5000处的站点
	OriginRouteStop layer.LocationID = 7946

	EastWestRoute   = 4
	NorthSouthRoute = 9
	DeadRoute       = 12
)

type routeSpec struct {
	route        int32
	tripsPerHour float64
	kftPerHour   float64
	stops        []orb.Point
}

func line(from, to orb.Point, step float64) []orb.Point {
	ps := []orb.Point{}
	dx, dy := to[0]-from[0], to[1]-from[1]
	n := int((abs(dx) + abs(dy)) / step)
	for i := 0; i <= n; i++ {
		f := float64(i) / float64(n)
		ps = append(ps, orb.Point{from[0] + dx*f, from[1] + dy*f})
	}
	return ps
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func reversed(ps []orb.Point) []orb.Point {
	out := make([]orb.Point, len(ps))
	for i, p := range ps {
		out[len(ps)-1-i] = p
	}
	return out
}

// Grid returns a square street grid crossed by an east-west route (4), a
// north-south route (9) sharing the central stop, and a route that does not
// operate (12). Both directions of 4 and 9 are served.
func Grid() *layer.Dataset {
	ds := &layer.Dataset{}
	fid := layer.LocationID(1)
	n := int(GridFeet / BlockFeet)
	for j := 0; j <= n; j++ {
		for i := 0; i < n; i++ {
			a := float64(i) * BlockFeet
			b := float64(i+1) * BlockFeet
			c := float64(j) * BlockFeet
			ds.Streets = append(ds.Streets,
				layer.Street{ID: fid, Geometry: orb.LineString{{a, c}, {b, c}}},
				layer.Street{ID: fid + 1, Geometry: orb.LineString{{c, a}, {c, b}}},
			)
			fid += 2
		}
	}

	specs := []routeSpec{
		{EastWestRoute, 6, 60, line(orb.Point{0, 5000}, orb.Point{GridFeet, 5000}, 1000)},
		{NorthSouthRoute, 12, 40, line(orb.Point{5000, 0}, orb.Point{5000, GridFeet}, 1000)},
		{DeadRoute, 0, 40, line(orb.Point{0, 8000}, orb.Point{GridFeet, 8000}, 2000)},
	}

	stopIDs := map[orb.Point]int64{}
	stopFid := layer.LocationID(1)
	for _, s := range specs {
		for _, p := range s.stops {
			if _, ok := stopIDs[p]; ok {
				continue
			}
			stopIDs[p] = 5000 + int64(stopFid)
			ds.Stops = append(ds.Stops, layer.Stop{ID: stopFid, StopID: stopIDs[p], Point: p})
			stopFid++
		}
	}

	routeStopFid := layer.LocationID(7941)
	routeFid := layer.LocationID(1)
	for _, s := range specs {
		dirs := [][]orb.Point{s.stops, reversed(s.stops)}
		if s.route == DeadRoute {
			dirs = dirs[:1]
		}
		for dir, stops := range dirs {
			trip := layer.TripKey{Route: s.route, Direction: int32(dir)}
			ds.Routes = append(ds.Routes, layer.Route{
				ID:           routeFid,
				TripKey:      trip,
				TripsPerHour: s.tripsPerHour,
				KFeetPerHour: s.kftPerHour,
				Geometry:     orb.LineString(stops),
			})
			routeFid++
			for _, p := range stops {
				ds.RouteStops = append(ds.RouteStops, layer.RouteStop{
					ID:      routeStopFid,
					StopID:  stopIDs[p],
					TripKey: trip,
					Point:   p,
				})
				routeStopFid++
			}
		}
	}
	return ds
}
