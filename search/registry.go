package search

import (
	"git.fiblab.net/sim/isochrone/layer"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry keeps the best elapsed time of every location of one mode.
type Registry struct {
	mode      Mode
	budget    float64
	threshold float64
	times     *xsync.MapOf[layer.LocationID, float64]
}

// NewRegistry creates an empty registry. A threshold below 1 would let a
// later, slower arrival overwrite a faster one and is raised to 1.
func NewRegistry(mode Mode, budget, threshold float64) *Registry {
	if threshold < 1 {
		log.Warnf("repeat threshold %v raised to 1", threshold)
		threshold = 1
	}
	return &Registry{
		mode:      mode,
		budget:    budget,
		threshold: threshold,
		times:     xsync.NewMapOf[layer.LocationID, float64](),
	}
}

func (r *Registry) Mode() Mode {
	return r.mode
}

// Admit records t for id if id is new or if the remaining budget at t beats
// the remaining budget at the recorded time by the repeat threshold. The
// check and the write are atomic per id, so concurrent admissions keep the
// lowest time.
func (r *Registry) Admit(id layer.LocationID, t float64) bool {
	admitted := false
	r.times.Compute(id, func(prev float64, loaded bool) (float64, bool) {
		if !loaded || r.budget-t > (r.budget-prev)*r.threshold {
			admitted = true
			return t, false
		}
		return prev, false
	})
	return admitted
}

func (r *Registry) Lookup(id layer.LocationID) (float64, bool) {
	return r.times.Load(id)
}

func (r *Registry) Len() int {
	return r.times.Size()
}

// Snapshot copies the registry into a plain map.
func (r *Registry) Snapshot() map[layer.LocationID]float64 {
	out := make(map[layer.LocationID]float64, r.times.Size())
	r.times.Range(func(id layer.LocationID, t float64) bool {
		out[id] = t
		return true
	})
	return out
}
