package store

import (
	"os"

	"git.fiblab.net/sim/isochrone/layer"
	"github.com/gocarina/gocsv"
)

// Headway overrides the frequency of one trip.
type Headway struct {
	Route        int32   `csv:"rte"`
	Direction    int32   `csv:"dir"`
	TripsPerHour float64 `csv:"trips_per_hour"`
}

func (h *Headway) Trip() layer.TripKey {
	return layer.TripKey{Route: h.Route, Direction: h.Direction}
}

// FrequencySetter is implemented by the router.
type FrequencySetter interface {
	SetTripsPerHour(trip layer.TripKey, tripsPerHour float64) error
}

// ReadHeadways reads a CSV file with the header rte,dir,trips_per_hour.
func ReadHeadways(path string) ([]*Headway, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	headways := []*Headway{}
	if err := gocsv.UnmarshalFile(f, &headways); err != nil {
		return nil, err
	}
	return headways, nil
}

func WriteHeadways(path string, headways []*Headway) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&headways, f)
}

// ApplyHeadways sets every headway on r and stops at the first failure.
func ApplyHeadways(r FrequencySetter, headways []*Headway) error {
	for _, h := range headways {
		if err := r.SetTripsPerHour(h.Trip(), h.TripsPerHour); err != nil {
			return err
		}
	}
	log.Infof("apply %d headways", len(headways))
	return nil
}
