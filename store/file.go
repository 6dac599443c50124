package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.fiblab.net/sim/isochrone/layer"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSON feature properties
const (
	PROP_LAYER          = "layer"
	PROP_FID            = "fid"
	PROP_STOP_ID        = "stop_id"
	PROP_ROUTE          = "rte"
	PROP_DIRECTION      = "dir"
	PROP_TRIPS_PER_HOUR = "TRIP_PR_HR"
	PROP_K_FEET_PER_HR  = "K_FT_PR_HR"
)

// ReadDatasetFile reads a .json dataset or a .geojson feature collection
// whose features carry a "layer" property.
func ReadDatasetFile(path string) (*layer.Dataset, error) {
	var ds *layer.Dataset
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		ds, err = readJSON(path)
	case ".geojson":
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, rerr
		}
		fc, perr := geojson.UnmarshalFeatureCollection(data)
		if perr != nil {
			return nil, fmt.Errorf("parse %s: %w", path, perr)
		}
		ds, err = FromFeatureCollection(fc)
	default:
		return nil, fmt.Errorf("unsupported dataset file %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := validate(ds); err != nil {
		return nil, err
	}
	log.Infof("read %v from %s", ds, path)
	return ds, nil
}

// WriteDatasetFile writes ds as .json or .geojson depending on the extension.
func WriteDatasetFile(path string, ds *layer.Dataset) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return writeJSON(path, ds)
	case ".geojson":
		data, err := ToFeatureCollection(ds).MarshalJSON()
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	default:
		return fmt.Errorf("unsupported dataset file %s", path)
	}
}

// FromFeatureCollection sorts the features into the four layers. Features
// without a known layer are skipped.
func FromFeatureCollection(fc *geojson.FeatureCollection) (ds *layer.Dataset, err error) {
	// Properties.Must*在类型错误时panic
	defer func() {
		if e := recover(); e != nil {
			ds, err = nil, fmt.Errorf("bad feature properties: %v", e)
		}
	}()
	ds = &layer.Dataset{}
	skipped := 0
	for _, f := range fc.Features {
		kind, perr := layer.ParseKind(f.Properties.MustString(PROP_LAYER, ""))
		if perr != nil {
			skipped++
			continue
		}
		id := layer.LocationID(f.Properties.MustInt(PROP_FID))
		switch kind {
		case layer.KindStreet:
			line, err := lineString(f.Geometry)
			if err != nil {
				return nil, fmt.Errorf("street %d: %w", id, err)
			}
			ds.Streets = append(ds.Streets, layer.Street{ID: id, Geometry: line})
		case layer.KindStop:
			p, ok := f.Geometry.(orb.Point)
			if !ok {
				return nil, fmt.Errorf("stop %d: %s is not a point", id, f.Geometry.GeoJSONType())
			}
			ds.Stops = append(ds.Stops, layer.Stop{
				ID:     id,
				StopID: int64(f.Properties.MustInt(PROP_STOP_ID)),
				Point:  p,
			})
		case layer.KindRouteStop:
			p, ok := f.Geometry.(orb.Point)
			if !ok {
				return nil, fmt.Errorf("route stop %d: %s is not a point", id, f.Geometry.GeoJSONType())
			}
			ds.RouteStops = append(ds.RouteStops, layer.RouteStop{
				ID:      id,
				StopID:  int64(f.Properties.MustInt(PROP_STOP_ID)),
				TripKey: tripKey(f.Properties),
				Point:   p,
			})
		case layer.KindRoute:
			line, err := lineString(f.Geometry)
			if err != nil {
				return nil, fmt.Errorf("route %d: %w", id, err)
			}
			ds.Routes = append(ds.Routes, layer.Route{
				ID:           id,
				TripKey:      tripKey(f.Properties),
				TripsPerHour: f.Properties.MustFloat64(PROP_TRIPS_PER_HOUR, 0),
				KFeetPerHour: f.Properties.MustFloat64(PROP_K_FEET_PER_HR, 0),
				Geometry:     line,
			})
		}
	}
	if skipped > 0 {
		log.Warnf("skip %d features without layer", skipped)
	}
	return ds, nil
}

func tripKey(p geojson.Properties) layer.TripKey {
	return layer.TripKey{
		Route:     int32(p.MustInt(PROP_ROUTE)),
		Direction: int32(p.MustInt(PROP_DIRECTION)),
	}
}

// 多段线按顺序首尾相接
func lineString(g orb.Geometry) (orb.LineString, error) {
	switch g := g.(type) {
	case orb.LineString:
		return g, nil
	case orb.MultiLineString:
		out := orb.LineString{}
		for _, part := range g {
			for i, p := range part {
				if i == 0 && len(out) > 0 && out[len(out)-1].Equal(p) {
					continue
				}
				out = append(out, p)
			}
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("no geometry")
	default:
		return nil, fmt.Errorf("%s is not a line", g.GeoJSONType())
	}
}

// ToFeatureCollection is the inverse of FromFeatureCollection.
func ToFeatureCollection(ds *layer.Dataset) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	add := func(g orb.Geometry, kind layer.Kind, id layer.LocationID, props geojson.Properties) {
		f := geojson.NewFeature(g)
		for k, v := range props {
			f.Properties[k] = v
		}
		f.Properties[PROP_LAYER] = kind.String()
		f.Properties[PROP_FID] = int(id)
		fc.Append(f)
	}
	for _, s := range ds.Streets {
		add(s.Geometry, layer.KindStreet, s.ID, nil)
	}
	for _, s := range ds.Stops {
		add(s.Point, layer.KindStop, s.ID, geojson.Properties{PROP_STOP_ID: int(s.StopID)})
	}
	for _, s := range ds.RouteStops {
		add(s.Point, layer.KindRouteStop, s.ID, geojson.Properties{
			PROP_STOP_ID:   int(s.StopID),
			PROP_ROUTE:     int(s.Route),
			PROP_DIRECTION: int(s.Direction),
		})
	}
	for _, r := range ds.Routes {
		add(r.Geometry, layer.KindRoute, r.ID, geojson.Properties{
			PROP_ROUTE:          int(r.Route),
			PROP_DIRECTION:      int(r.Direction),
			PROP_TRIPS_PER_HOUR: r.TripsPerHour,
			PROP_K_FEET_PER_HR:  r.KFeetPerHour,
		})
	}
	return fc
}
