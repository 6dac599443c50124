package algo

import (
	"container/heap"
	"math"
	"sort"

	"github.com/samber/lo"
)

type edge[T any] struct {
	v    float64
	attr T
}

// SearchGraph is a directed graph whose nodes are numbered from 0 in
// creation order.
type SearchGraph[ET any] struct {
	// 邻接表，in node -> out node -> edge
	// 建图完成后只读，可并发查询
	edges []map[int]edge[ET]
}

func NewSearchGraph[ET any]() *SearchGraph[ET] {
	return &SearchGraph[ET]{edges: make([]map[int]edge[ET], 0)}
}

func (g *SearchGraph[ET]) InitNode() int {
	g.edges = append(g.edges, make(map[int]edge[ET]))
	return len(g.edges) - 1
}

func (g *SearchGraph[ET]) InitEdge(from, to int, length float64, attr ET) {
	if from >= len(g.edges) || to >= len(g.edges) {
		log.Panicf("edge %d->%d out of range, node count %d", from, to, len(g.edges))
	}
	if length < 0 {
		log.Panicf("edge %d->%d has negative length %v", from, to, length)
	}
	g.edges[from][to] = edge[ET]{v: length, attr: attr}
}

func (g *SearchGraph[ET]) NodeCount() int {
	return len(g.edges)
}

func (g *SearchGraph[ET]) GetEdgeLengthAndAttr(from, to int) (float64, ET) {
	edge := g.edges[from][to]
	return edge.v, edge.attr
}

func (g *SearchGraph[ET]) GetEdgeLength(from, to int) float64 {
	length, _ := g.GetEdgeLengthAndAttr(from, to)
	return length
}

// Seed is a search start with an initial cost, used when the real start
// lies between graph nodes.
type Seed struct {
	Node int
	Cost float64
}

// EdgeFilter decides whether an edge may be used by one search.
type EdgeFilter[ET any] func(from, to int, attr ET) bool

// ShortestPathTree is the result of a one-to-many search.
type ShortestPathTree struct {
	cost map[int]float64
}

// Cost returns the cost to reach node id, +Inf if it was not reached.
func (t *ShortestPathTree) Cost(id int) float64 {
	if c, ok := t.cost[id]; ok {
		return c
	}
	return math.Inf(0)
}

// ShortestPaths runs Dijkstra from the seeds over the edges accepted by
// filter (nil accepts all), stopping at cost limit (<=0 means unlimited).
func (g *SearchGraph[ET]) ShortestPaths(seeds []Seed, limit float64, filter EdgeFilter[ET]) *ShortestPathTree {
	if limit <= 0 {
		limit = math.Inf(0)
	}
	tree := &ShortestPathTree{cost: make(map[int]float64)}
	openSet := make(PriorityQueue, 0, len(seeds))
	openSetMap := make(map[int]*Item, len(seeds)) // openSet value -> openSet item
	for _, s := range seeds {
		if s.Cost > limit {
			continue
		}
		if old, ok := openSetMap[s.Node]; ok {
			if s.Cost < old.Priority {
				old.Priority = s.Cost
				tree.cost[s.Node] = s.Cost
			}
			continue
		}
		item := &Item{Value: s.Node, Priority: s.Cost}
		openSet.Push(item)
		openSetMap[s.Node] = item
		tree.cost[s.Node] = s.Cost
	}
	heap.Init(&openSet)
	closed := make(map[int]bool)
	for openSet.Len() > 0 {
		cur := heap.Pop(&openSet).(*Item)
		closed[cur.Value] = true
		for _, neighbor := range g.sortedNeighbors(cur.Value) {
			if closed[neighbor] {
				continue
			}
			edge := g.edges[cur.Value][neighbor]
			if filter != nil && !filter(cur.Value, neighbor, edge.attr) {
				continue
			}
			tentative := cur.Priority + edge.v
			if tentative > limit {
				continue
			}
			if old, ok := tree.cost[neighbor]; ok && tentative >= old {
				continue
			}
			tree.cost[neighbor] = tentative
			if item, ok := openSetMap[neighbor]; ok {
				// 已经访问过的节点，修改其在heap中的优先级
				item.Priority = tentative
				heap.Fix(&openSet, item.Index)
			} else {
				// 新访问的节点
				item := &Item{Value: neighbor, Priority: tentative}
				heap.Push(&openSet, item)
				openSetMap[neighbor] = item
			}
		}
	}
	return tree
}

// 邻居按id排序，保证等价路径下结果确定
func (g *SearchGraph[ET]) sortedNeighbors(id int) []int {
	ns := lo.Keys(g.edges[id])
	sort.Ints(ns)
	return ns
}
