package router

import (
	"git.fiblab.net/sim/isochrone/layer"
	"github.com/paulmach/orb"
)

type Street struct {
	layer.Street
	Length float64
	bound  orb.Bound

	// 步行图中的起终点
	HeadNodeId, TailNodeId int
}

// 点在步行网络上的吸附位置
type snap struct {
	Street layer.LocationID
	S      float64 // 距街道起点的长度
	Offset float64 // 点到街道的垂直距离
	ok     bool
}

type Stop struct {
	layer.Stop
	snap snap
}

type RouteStop struct {
	layer.RouteStop
	snap snap

	// 在所属线路上的位置
	S             float64
	TransitNodeId int
}

type Route struct {
	layer.Route
	Length float64
	// 按fid排序，即停靠顺序，S不减
	Stops []*RouteStop
}

type walkEdgeAttr struct {
	Street layer.LocationID
}

type transitEdgeAttr struct {
	Trip layer.TripKey
}
