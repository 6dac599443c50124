package search

import (
	"container/heap"
	"sync"
)

// candidateHeap orders candidates by time; ties are broken by mode (walking
// first), location, route and direction, so pop order never depends on
// insertion order.
type candidateHeap []Candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	if a.Mode != b.Mode {
		return a.Mode < b.Mode
	}
	if a.Location != b.Location {
		return a.Location < b.Location
	}
	if a.Trip != b.Trip {
		return a.Trip.Less(b.Trip)
	}
	return !a.IsOrigin && b.IsOrigin
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(Candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// Frontier is the worklist of candidates. A candidate is actionable only
// while its time equals the time recorded for it in its mode's registry;
// superseded candidates stay queued and are dropped when popped.
type Frontier struct {
	mu       sync.Mutex
	items    candidateHeap
	registry map[Mode]*Registry
	stale    int
}

func NewFrontier(walking, transit *Registry) *Frontier {
	return &Frontier{
		registry: map[Mode]*Registry{Walking: walking, Transit: transit},
	}
}

func (f *Frontier) Push(c Candidate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	heap.Push(&f.items, c)
}

// PopNext removes candidates in order until it finds an actionable one.
// ok is false once the frontier is exhausted.
func (f *Frontier) PopNext() (c Candidate, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.items.Len() > 0 {
		c = heap.Pop(&f.items).(Candidate)
		if t, found := f.registry[c.Mode].Lookup(c.Location); found && t == c.Time {
			return c, true
		}
		f.stale++
		log.Debugf("drop stale candidate %v", c)
	}
	return Candidate{}, false
}

func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items.Len()
}

// Stale is the number of superseded candidates dropped so far.
func (f *Frontier) Stale() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stale
}
