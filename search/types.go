// Package search computes the area reachable from one origin within a time
// budget by walking and riding transit.
//
// A run alternates two kinds of expansion. A walking candidate searches the
// street network around it for route stops and records the walked streets;
// every route stop found becomes a transit candidate departing after the
// average wait of its trip. A transit candidate rides its trip to the
// following stops; every stop reached becomes a walking candidate and a
// transfer to the other trips serving it. Candidates are expanded in order of
// elapsed time and superseded ones are skipped when popped.
package search

import (
	"errors"
	"fmt"

	"git.fiblab.net/sim/isochrone/layer"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "search")

var (
	ErrCanceled      = errors.New("search canceled")
	ErrInvalidBudget = errors.New("time budget must be positive")
	ErrUnknownOrigin = errors.New("unknown origin")
	ErrDriverUsed    = errors.New("driver already ran")
)

type Mode int8

const (
	Walking Mode = iota
	Transit
)

func (m Mode) String() string {
	switch m {
	case Walking:
		return "walking"
	case Transit:
		return "transit"
	default:
		return fmt.Sprintf("mode(%d)", int8(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "walking":
		return Walking, nil
	case "transit":
		return Transit, nil
	}
	return 0, fmt.Errorf("unknown mode: %q", s)
}

// Candidate is a location reached at Time hours after departure, waiting to
// be expanded.
type Candidate struct {
	Location layer.LocationID
	// 所属图层：步行为KindStop或KindPoint，公交为KindRouteStop
	Layer layer.Kind
	Time  float64
	Mode  Mode
	// 公交候选点所乘坐的线路方向
	Trip     layer.TripKey
	IsOrigin bool
	At       orb.Point
}

func (c Candidate) String() string {
	if c.Mode == Transit {
		return fmt.Sprintf("%v %v(fid=%d, trip=%v) at %.4fh", c.Mode, c.Layer, c.Location, c.Trip, c.Time)
	}
	return fmt.Sprintf("%v %v(fid=%d) at %.4fh", c.Mode, c.Layer, c.Location, c.Time)
}

// Origin is where a run starts. Transit origins name a route stop, walking
// origins name a pedestrian stop, or a point when Point is set.
type Origin struct {
	Mode     Mode
	Location layer.LocationID
	Point    *orb.Point
}

type Status int8

const (
	StatusConverged Status = iota
	StatusCanceled
)

func (s Status) String() string {
	if s == StatusCanceled {
		return "canceled"
	}
	return "converged"
}

// ServiceArea is the merged geometry of one mode.
type ServiceArea struct {
	Geometry orb.MultiLineString
	// 上次合并后累积的碎片数
	Fragments int
}

// Result is the output of one run. A canceled run returns what was found so
// far with StatusCanceled.
type Result struct {
	Status  Status
	Walking ServiceArea
	Transit ServiceArea
	// 各站点的最早到达时间（小时）
	WalkingTimes map[layer.LocationID]float64
	TransitTimes map[layer.LocationID]float64

	Expanded int
	Stale    int
}

// Area returns the walking and transit geometry together.
func (r *Result) Area() orb.MultiLineString {
	out := make(orb.MultiLineString, 0, len(r.Walking.Geometry)+len(r.Transit.Geometry))
	out = append(out, r.Walking.Geometry...)
	return append(out, r.Transit.Geometry...)
}
