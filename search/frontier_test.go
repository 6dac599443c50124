package search_test

import (
	"testing"

	"git.fiblab.net/sim/isochrone/layer"
	"git.fiblab.net/sim/isochrone/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFrontier() (*search.Frontier, *search.Registry, *search.Registry) {
	walking := search.NewRegistry(search.Walking, 1, 1)
	transit := search.NewRegistry(search.Transit, 1, 1)
	return search.NewFrontier(walking, transit), walking, transit
}

func TestFrontierOrder(t *testing.T) {
	f, walking, _ := newFrontier()
	for _, tm := range []float64{0.3, 0.1, 0.2} {
		id := layer.LocationID(tm * 10)
		walking.Admit(id, tm)
		f.Push(search.Candidate{Location: id, Time: tm, Mode: search.Walking})
	}
	for _, want := range []float64{0.1, 0.2, 0.3} {
		c, ok := f.PopNext()
		require.True(t, ok)
		assert.Equal(t, want, c.Time)
	}
	_, ok := f.PopNext()
	assert.False(t, ok)
}

func TestFrontierLazyDeletion(t *testing.T) {
	f, _, transit := newFrontier()
	// 先以t1入队，之后发现更早的t2
	transit.Admit(5, 0.4)
	f.Push(search.Candidate{Location: 5, Time: 0.4, Mode: search.Transit})
	transit.Admit(5, 0.25)
	f.Push(search.Candidate{Location: 5, Time: 0.25, Mode: search.Transit})
	assert.Equal(t, 2, f.Len())

	c, ok := f.PopNext()
	require.True(t, ok)
	assert.Equal(t, 0.25, c.Time)

	// t1的候选点被丢弃
	_, ok = f.PopNext()
	assert.False(t, ok)
	assert.Equal(t, 1, f.Stale())
	assert.Equal(t, 0, f.Len())
}

func TestFrontierStaleBeforeFresh(t *testing.T) {
	f, walking, transit := newFrontier()
	// 过期的候选点排在前面时同样被跳过
	transit.Admit(1, 0.1)
	f.Push(search.Candidate{Location: 1, Time: 0.1, Mode: search.Transit})
	transit.Admit(1, 0.05)
	walking.Admit(2, 0.2)
	f.Push(search.Candidate{Location: 2, Time: 0.2, Mode: search.Walking})

	c, ok := f.PopNext()
	require.True(t, ok)
	assert.Equal(t, layer.LocationID(2), c.Location)
	assert.Equal(t, 1, f.Stale())
}

func TestFrontierTieBreak(t *testing.T) {
	f, walking, transit := newFrontier()
	push := func(c search.Candidate) {
		if c.Mode == search.Walking {
			walking.Admit(c.Location, c.Time)
		} else {
			transit.Admit(c.Location, c.Time)
		}
		f.Push(c)
	}
	push(search.Candidate{Location: 9, Time: 0.1, Mode: search.Transit, Trip: layer.TripKey{Route: 2}})
	push(search.Candidate{Location: 3, Time: 0.1, Mode: search.Transit, Trip: layer.TripKey{Route: 1}})
	push(search.Candidate{Location: 8, Time: 0.1, Mode: search.Walking})
	push(search.Candidate{Location: 4, Time: 0.1, Mode: search.Walking})

	// 同一时间：步行优先，其次按fid
	want := []layer.LocationID{4, 8, 3, 9}
	for _, id := range want {
		c, ok := f.PopNext()
		require.True(t, ok)
		assert.Equal(t, id, c.Location)
	}
}
