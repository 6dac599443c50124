package algo_test

import (
	"math"
	"testing"

	"git.fiblab.net/sim/isochrone/router/algo"
	"github.com/stretchr/testify/assert"
)

func TestSearchGraph(t *testing.T) {
	g := algo.NewSearchGraph[int]()

	// 初始化点
	n1 := g.InitNode()
	n2 := g.InitNode()
	n3 := g.InitNode()
	n4 := g.InitNode()
	assert.Equal(t, 4, g.NodeCount())

	// 初始化边
	g.InitEdge(n1, n2, 1, 12)
	g.InitEdge(n2, n3, 1, 23)
	g.InitEdge(n3, n4, 1, 34)

	length, attr := g.GetEdgeLengthAndAttr(n2, n3)
	assert.Equal(t, 1.0, length)
	assert.Equal(t, 23, attr)
	// 不存在的边长度为0
	assert.Equal(t, 0.0, g.GetEdgeLength(n1, n4))
	assert.Panics(t, func() { g.InitEdge(n1, 10, 1, 0) })
	assert.Panics(t, func() { g.InitEdge(n1, n3, -1, 0) })

	// 计算最短路
	tree := g.ShortestPaths([]algo.Seed{{Node: n1}}, 0, nil)
	assert.Equal(t, 0.0, tree.Cost(n1))
	assert.Equal(t, 2.0, tree.Cost(n3))
	assert.Equal(t, 3.0, tree.Cost(n4))

	// 有向边，反方向不可达
	tree = g.ShortestPaths([]algo.Seed{{Node: n4}}, 0, nil)
	assert.Equal(t, math.Inf(0), tree.Cost(n1))

	// 加入孤立的点
	n5 := g.InitNode()
	tree = g.ShortestPaths([]algo.Seed{{Node: n1}}, 0, nil)
	assert.Equal(t, math.Inf(0), tree.Cost(n5))
}

func TestSearchGraphShorterDetour(t *testing.T) {
	g := algo.NewSearchGraph[int]()
	n1 := g.InitNode()
	n2 := g.InitNode()
	n3 := g.InitNode()

	g.InitEdge(n1, n2, 10, 12)
	g.InitEdge(n1, n3, 2, 13)
	g.InitEdge(n3, n2, 1, 32)

	// 经n3绕行更短
	tree := g.ShortestPaths([]algo.Seed{{Node: n1}}, 0, nil)
	assert.Equal(t, 3.0, tree.Cost(n2))
	assert.Equal(t, 2.0, tree.Cost(n3))
}

func TestShortestPathsLimitAndFilter(t *testing.T) {
	g := algo.NewSearchGraph[int]()
	ns := make([]int, 5)
	for i := range ns {
		ns[i] = g.InitNode()
	}
	for i := 0; i < 4; i++ {
		g.InitEdge(ns[i], ns[i+1], 1, i)
	}

	// 超出上限的点不可达
	tree := g.ShortestPaths([]algo.Seed{{Node: ns[0]}}, 2.5, nil)
	assert.Equal(t, 2.0, tree.Cost(ns[2]))
	assert.True(t, math.IsInf(tree.Cost(ns[3]), 1))

	// 过滤掉第2条边
	tree = g.ShortestPaths([]algo.Seed{{Node: ns[0]}}, 0, func(from, to int, attr int) bool {
		return attr != 1
	})
	assert.Equal(t, 1.0, tree.Cost(ns[1]))
	assert.True(t, math.IsInf(tree.Cost(ns[2]), 1))

	// 起点代价已超过上限
	tree = g.ShortestPaths([]algo.Seed{{Node: ns[0], Cost: 3}}, 2.5, nil)
	assert.True(t, math.IsInf(tree.Cost(ns[0]), 1))
}

func TestShortestPathsMultiSeed(t *testing.T) {
	g := algo.NewSearchGraph[int]()
	a := g.InitNode()
	b := g.InitNode()
	c := g.InitNode()
	g.InitEdge(a, c, 5, 0)
	g.InitEdge(b, c, 5, 1)

	// 起点位于两个结点之间，分别以初始代价出发
	tree := g.ShortestPaths([]algo.Seed{{Node: a, Cost: 3}, {Node: b, Cost: 1}}, 0, nil)
	assert.Equal(t, 6.0, tree.Cost(c))
	assert.Equal(t, 1.0, tree.Cost(b))

	// 同一结点出现多次时取较小值
	tree = g.ShortestPaths([]algo.Seed{{Node: a, Cost: 3}, {Node: a, Cost: 1}}, 0, nil)
	assert.Equal(t, 1.0, tree.Cost(a))
	assert.Equal(t, 6.0, tree.Cost(c))
}
