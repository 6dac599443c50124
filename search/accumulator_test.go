package search_test

import (
	"errors"
	"testing"

	"git.fiblab.net/sim/isochrone/search"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGeometry struct {
	unions, dissolves int
	err               error
}

func (g *countingGeometry) UnionGeometries(parts ...orb.MultiLineString) (orb.MultiLineString, error) {
	g.unions++
	out := orb.MultiLineString{}
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, g.err
}

func (g *countingGeometry) Dissolve(m orb.MultiLineString) (orb.MultiLineString, error) {
	g.dissolves++
	return m, nil
}

func fragment(i int) search.Fragment {
	x := float64(i)
	return search.Fragment{Geometry: orb.MultiLineString{{{x, 0}, {x, 1}}}, Time: x / 100}
}

func TestAccumulatorConsolidate(t *testing.T) {
	g := &countingGeometry{}
	a := search.NewAccumulator(search.Walking, g, 7)
	for i := 0; i < 8; i++ {
		require.NoError(t, a.Merge(fragment(i)))
	}
	assert.Equal(t, 1, g.dissolves)
	assert.Equal(t, 1, a.Dissolved())
	assert.Equal(t, 7, g.unions)
	area := a.Area()
	assert.Len(t, area.Geometry, 8)
	assert.Equal(t, 1, area.Fragments)
}

func TestAccumulatorBelowThreshold(t *testing.T) {
	g := &countingGeometry{}
	a := search.NewAccumulator(search.Transit, g, 7)
	for i := 0; i < 6; i++ {
		require.NoError(t, a.Merge(fragment(i)))
	}
	assert.Equal(t, 0, g.dissolves)
	assert.Equal(t, 6, a.Area().Fragments)
}

func TestAccumulatorFirstAndEmpty(t *testing.T) {
	g := &countingGeometry{}
	a := search.NewAccumulator(search.Walking, g, 0)
	// 空碎片不计数
	require.NoError(t, a.Merge(search.Fragment{}))
	assert.Equal(t, 0, a.Area().Fragments)
	assert.Empty(t, a.Area().Geometry)

	// 第一个碎片直接作为区域
	require.NoError(t, a.Merge(fragment(1)))
	assert.Equal(t, 0, g.unions)
	assert.Equal(t, fragment(1).Geometry, a.Area().Geometry)
}

func TestAccumulatorError(t *testing.T) {
	boom := errors.New("boom")
	g := &countingGeometry{err: boom}
	a := search.NewAccumulator(search.Walking, g, 7)
	require.NoError(t, a.Merge(fragment(1)))
	assert.ErrorIs(t, a.Merge(fragment(2)), boom)
}
