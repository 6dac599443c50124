package main

import (
	"encoding/json"

	"git.fiblab.net/sim/isochrone/layer"
	"github.com/paulmach/orb"
)

const IsochroneServiceName = "isochrone.v1.IsochroneService"

const (
	IsochroneServiceSearchProcedure             = "/isochrone.v1.IsochroneService/Search"
	IsochroneServiceSetTripFrequenciesProcedure = "/isochrone.v1.IsochroneService/SetTripFrequencies"
	IsochroneServiceGetTripFrequenciesProcedure = "/isochrone.v1.IsochroneService/GetTripFrequencies"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type SearchRequest struct {
	// walking或transit
	Mode string `json:"mode"`
	// 公交起点为route stop的fid，步行起点为stop的fid
	Fid int64 `json:"fid,omitempty"`
	// 步行起点也可以是任意坐标
	Point *Point `json:"point,omitempty"`
	// <=0时使用配置文件中的预算
	BudgetMinutes float64 `json:"budget_minutes,omitempty"`
	WaitAtOrigin  *bool   `json:"wait_at_origin,omitempty"`
}

type ReachedStop struct {
	Fid     int64   `json:"fid"`
	Minutes float64 `json:"minutes"`
}

type SearchResponse struct {
	// converged或canceled
	Status       string              `json:"status"`
	WalkingArea  orb.MultiLineString `json:"walking_area"`
	TransitArea  orb.MultiLineString `json:"transit_area"`
	WalkingStops []ReachedStop       `json:"walking_stops"`
	TransitStops []ReachedStop       `json:"transit_stops"`
	Expanded     int                 `json:"expanded"`
	Stale        int                 `json:"stale"`
}

type TripFrequency struct {
	layer.TripKey
	TripsPerHour float64 `json:"trips_per_hour"`
}

type SetTripFrequenciesRequest struct {
	Frequencies []TripFrequency `json:"frequencies"`
}

type SetTripFrequenciesResponse struct{}

type GetTripFrequenciesRequest struct {
	// 为空时返回全部线路
	Trips []layer.TripKey `json:"trips"`
}

type GetTripFrequenciesResponse struct {
	Frequencies []TripFrequency `json:"frequencies"`
}

// jsonCodec carries the plain Go messages above over connect.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
