// Package layer holds the feature records of the four input layers
// (streets, stops, route stops, routes) and the selection types exchanged
// with the network query service.
package layer

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// LocationID is the fid of a feature inside its own layer.
type LocationID int64

// OriginLocation is reserved for searches starting at an arbitrary point.
const OriginLocation LocationID = -1

// Kind names the layer a feature or selection belongs to.
type Kind int8

const (
	KindStreet Kind = iota + 1
	KindStop
	KindRouteStop
	KindRoute
	// 任意坐标点，不属于任何图层
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindStreet:
		return "street"
	case KindStop:
		return "stop"
	case KindRouteStop:
		return "route_stop"
	case KindRoute:
		return "route"
	case KindPoint:
		return "point"
	default:
		return fmt.Sprintf("kind(%d)", int8(k))
	}
}

// ParseKind is the inverse of Kind.String for the stored layer classes.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "street":
		return KindStreet, nil
	case "stop":
		return KindStop, nil
	case "route_stop":
		return KindRouteStop, nil
	case "route":
		return KindRoute, nil
	}
	return 0, fmt.Errorf("unknown layer class: %q", s)
}

// TripKey identifies one directed trip pattern.
type TripKey struct {
	Route     int32 `json:"rte" bson:"rte" csv:"rte"`
	Direction int32 `json:"dir" bson:"dir" csv:"dir"`
}

func (k TripKey) String() string {
	return fmt.Sprintf("%d/%d", k.Route, k.Direction)
}

// Less orders trips by route and then direction.
func (k TripKey) Less(o TripKey) bool {
	if k.Route != o.Route {
		return k.Route < o.Route
	}
	return k.Direction < o.Direction
}

type Street struct {
	ID       LocationID     `json:"fid" bson:"fid"`
	Geometry orb.LineString `json:"geometry" bson:"geometry"`
}

// Stop is a pedestrian stop. StopID is shared by every route stop served at
// the same physical location.
type Stop struct {
	ID     LocationID `json:"fid" bson:"fid"`
	StopID int64      `json:"stop_id" bson:"stop_id"`
	Point  orb.Point  `json:"geometry" bson:"geometry"`
}

// RouteStop is a stop served by one directed trip pattern.
type RouteStop struct {
	ID      LocationID `json:"fid" bson:"fid"`
	StopID  int64      `json:"stop_id" bson:"stop_id"`
	TripKey `bson:",inline"`
	Point   orb.Point  `json:"geometry" bson:"geometry"`
}

type Route struct {
	ID      LocationID `json:"fid" bson:"fid"`
	TripKey `bson:",inline"`

	// 每小时班次数，0表示该方向停运
	TripsPerHour float64        `json:"TRIP_PR_HR" bson:"TRIP_PR_HR"`
	KFeetPerHour float64        `json:"K_FT_PR_HR" bson:"K_FT_PR_HR"` // 千英尺/小时
	Geometry     orb.LineString `json:"geometry" bson:"geometry"`
}

// FeetPerHour converts K_FT_PR_HR to feet per hour. A missing speed falls
// back to defaultKFeet.
func (r Route) FeetPerHour(defaultKFeet float64) float64 {
	if r.KFeetPerHour > 0 {
		return r.KFeetPerHour * 1000
	}
	return defaultKFeet * 1000
}

// Dataset is the complete input of one network.
type Dataset struct {
	Streets    []Street    `json:"streets"`
	Stops      []Stop      `json:"stops"`
	RouteStops []RouteStop `json:"route_stops"`
	Routes     []Route     `json:"routes"`
}

func (d *Dataset) String() string {
	return fmt.Sprintf("dataset{streets=%d, stops=%d, route_stops=%d, routes=%d}",
		len(d.Streets), len(d.Stops), len(d.RouteStops), len(d.Routes))
}

// Region is a circular spatial filter.
type Region struct {
	Center orb.Point
	Radius float64
}

func (r Region) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.Center[0] - r.Radius, r.Center[1] - r.Radius},
		Max: orb.Point{r.Center[0] + r.Radius, r.Center[1] + r.Radius},
	}
}

// Selection is a subset of one layer, identified by sorted fids.
type Selection struct {
	Layer Kind
	IDs   []LocationID
}

func (s Selection) Empty() bool {
	return len(s.IDs) == 0
}

// PathCost is one entry of a one-to-many shortest path query.
type PathCost struct {
	Target RouteStop
	// 单位为小时，不可达时为+Inf
	Cost float64
	// 路径几何，仅公交线路查询提供
	Path orb.LineString
}

// HasCost reports whether the target was reached at all.
func (p PathCost) HasCost() bool {
	return !math.IsInf(p.Cost, 0) && !math.IsNaN(p.Cost)
}
