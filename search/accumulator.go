package search

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
)

// DefaultConsolidateThreshold is the fragment count above which the
// accumulated area is dissolved.
const DefaultConsolidateThreshold = 7

// Fragment is a piece of reachable geometry produced by one expansion.
type Fragment struct {
	Geometry orb.MultiLineString
	Time     float64
}

// Accumulator unions the fragments of one mode, dissolving the area whenever
// more than threshold fragments were merged since the last dissolve.
type Accumulator struct {
	mu        sync.Mutex
	mode      Mode
	geo       Geometry
	threshold int

	area      orb.MultiLineString
	fragments int
	dissolved int
}

func NewAccumulator(mode Mode, geo Geometry, threshold int) *Accumulator {
	if threshold <= 0 {
		threshold = DefaultConsolidateThreshold
	}
	return &Accumulator{mode: mode, geo: geo, threshold: threshold}
}

// Merge adds f to the area. Empty fragments are ignored.
func (a *Accumulator) Merge(f Fragment) error {
	if len(f.Geometry) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fragments == 0 {
		a.area = f.Geometry
		a.fragments = 1
		return nil
	}
	merged, err := a.geo.UnionGeometries(a.area, f.Geometry)
	if err != nil {
		return fmt.Errorf("union %v fragment at %.4fh: %w", a.mode, f.Time, err)
	}
	a.area = merged
	a.fragments++
	if a.fragments > a.threshold {
		dissolved, err := a.geo.Dissolve(a.area)
		if err != nil {
			return fmt.Errorf("dissolve %v area: %w", a.mode, err)
		}
		log.Debugf("dissolve %v area: %d fragments, %d -> %d lines",
			a.mode, a.fragments, len(a.area), len(dissolved))
		a.area = dissolved
		// 合并后的区域计为一个碎片
		a.fragments = 1
		a.dissolved++
	}
	return nil
}

// Area returns the current geometry.
func (a *Accumulator) Area() ServiceArea {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ServiceArea{Geometry: a.area, Fragments: a.fragments}
}

// Dissolved is the number of dissolves performed.
func (a *Accumulator) Dissolved() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dissolved
}
