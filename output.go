package main

import (
	"os"
	"sort"

	"git.fiblab.net/sim/isochrone/layer"
	"git.fiblab.net/sim/isochrone/router"
	"git.fiblab.net/sim/isochrone/search"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/samber/lo"
)

// 输出图层
const (
	LAYER_WALKING_AREA   = "walking_service_area"
	LAYER_TRANSIT_AREA   = "transit_service_area"
	LAYER_REACHABLE_STOP = "reachable_stop"
)

// resultFeatureCollection converts a result into the walking area, the
// transit area and one point per reachable pedestrian stop.
func resultFeatureCollection(r *router.Router, res *search.Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	areas := []struct {
		name string
		area search.ServiceArea
	}{
		{LAYER_WALKING_AREA, res.Walking},
		{LAYER_TRANSIT_AREA, res.Transit},
	}
	for _, a := range areas {
		g := a.area.Geometry
		if g == nil {
			g = orb.MultiLineString{}
		}
		f := geojson.NewFeature(g)
		f.Properties["layer"] = a.name
		f.Properties["fragments"] = a.area.Fragments
		f.Properties["status"] = res.Status.String()
		fc.Append(f)
	}

	ids := lo.Filter(lo.Keys(res.WalkingTimes), func(id layer.LocationID, _ int) bool {
		return id != layer.OriginLocation
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		stop, ok := r.Stop(id)
		if !ok {
			continue
		}
		f := geojson.NewFeature(stop.Point)
		f.Properties["layer"] = LAYER_REACHABLE_STOP
		f.Properties["fid"] = int(stop.ID)
		f.Properties["stop_id"] = int(stop.StopID)
		f.Properties["minutes"] = res.WalkingTimes[id] * 60
		fc.Append(f)
	}
	return fc
}

func writeResult(path string, r *router.Router, res *search.Result) error {
	data, err := resultFeatureCollection(r, res).MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
