package router

import (
	"context"
	"math"

	"git.fiblab.net/sim/isochrone/layer"
	"git.fiblab.net/sim/isochrone/router/algo"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

const (
	// 端点合并的坐标精度，英尺
	NODE_MERGE_PRECISION = 1e-3
)

type nodeKey [2]int64

func toNodeKey(p orb.Point) nodeKey {
	return nodeKey{
		int64(math.Round(p[0] / NODE_MERGE_PRECISION)),
		int64(math.Round(p[1] / NODE_MERGE_PRECISION)),
	}
}

func (r *Router) buildWalkGraph() {
	walkGraph := algo.NewSearchGraph[walkEdgeAttr]()
	// 坐标重合的街道端点合并为同一个nodeId
	nodeIds := make(map[nodeKey]int)
	nodeOf := func(p orb.Point) int {
		k := toNodeKey(p)
		if id, ok := nodeIds[k]; ok {
			return id
		}
		id := walkGraph.InitNode()
		nodeIds[k] = id
		return id
	}
	parallel := 0
	for _, id := range r.streetIDs {
		s := r.streets[id]
		s.HeadNodeId = nodeOf(s.Geometry[0])
		s.TailNodeId = nodeOf(s.Geometry[len(s.Geometry)-1])
		if s.HeadNodeId == s.TailNodeId {
			// 环形街道只能从中间到达
			continue
		}
		// 同一对端点间有多条街道时保留较短者
		if old := walkGraph.GetEdgeLength(s.HeadNodeId, s.TailNodeId); old > 0 && old <= s.Length {
			parallel++
			continue
		}
		walkGraph.InitEdge(s.HeadNodeId, s.TailNodeId, s.Length, walkEdgeAttr{Street: id})
		walkGraph.InitEdge(s.TailNodeId, s.HeadNodeId, s.Length, walkEdgeAttr{Street: id})
	}
	if parallel > 0 {
		log.Debugf("%d parallel streets are shadowed in walk graph", parallel)
	}
	r.walkGraph = walkGraph
}

// 在候选街道中寻找距离p最近的位置
func (r *Router) snapTo(p orb.Point, candidates []layer.LocationID) snap {
	best := snap{Offset: math.Inf(0)}
	for _, id := range candidates {
		s := r.streets[id]
		// 包围盒距离已超过当前最优值时跳过
		if boundDistance(s.bound, p) > best.Offset {
			continue
		}
		along, offset := project(s.Geometry, p)
		if offset < best.Offset {
			best = snap{Street: id, S: along, Offset: offset, ok: true}
		}
	}
	return best
}

func boundDistance(b orb.Bound, p orb.Point) float64 {
	dx := math.Max(0, math.Max(b.Min[0]-p[0], p[0]-b.Max[0]))
	dy := math.Max(0, math.Max(b.Min[1]-p[1], p[1]-b.Max[1]))
	return math.Hypot(dx, dy)
}

type walkSearch struct {
	origin  snap
	allowed map[layer.LocationID]bool
	tree    *algo.ShortestPathTree
}

// 从origin出发在选中的街道上搜索，limit为距离上限（英尺）
func (r *Router) searchWalk(origin orb.Point, network layer.Selection, limit float64) (*walkSearch, bool) {
	allowed := lo.SliceToMap(network.IDs, func(id layer.LocationID) (layer.LocationID, bool) {
		return id, true
	})
	candidates := lo.Filter(network.IDs, func(id layer.LocationID, _ int) bool {
		_, ok := r.streets[id]
		return ok
	})
	o := r.snapTo(origin, candidates)
	if !o.ok {
		return nil, false
	}
	s := r.streets[o.Street]
	seeds := []algo.Seed{
		{Node: s.HeadNodeId, Cost: o.Offset + o.S},
		{Node: s.TailNodeId, Cost: o.Offset + s.Length - o.S},
	}
	tree := r.walkGraph.ShortestPaths(seeds, limit, func(from, to int, attr walkEdgeAttr) bool {
		return allowed[attr.Street]
	})
	return &walkSearch{origin: o, allowed: allowed, tree: tree}, true
}

// 到吸附点的最短距离，不含吸附点自身的垂直距离
func (w *walkSearch) distanceTo(r *Router, at snap) float64 {
	if !at.ok || !w.allowed[at.Street] {
		return math.Inf(0)
	}
	s := r.streets[at.Street]
	d := math.Min(
		w.tree.Cost(s.HeadNodeId)+at.S,
		w.tree.Cost(s.TailNodeId)+s.Length-at.S,
	)
	if at.Street == w.origin.Street {
		d = math.Min(d, w.origin.Offset+math.Abs(at.S-w.origin.S))
	}
	return d
}

func (r *Router) walkPathsToTargets(
	ctx context.Context,
	origin orb.Point, network, targets layer.Selection, speed float64,
) ([]layer.PathCost, error) {
	results := make([]layer.PathCost, 0, len(targets.IDs))
	w, ok := r.searchWalk(origin, network, 0)
	for _, id := range targets.IDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs, found := r.routeStops[id]
		if !found {
			return nil, errNotFound(layer.KindRouteStop, id)
		}
		cost := math.Inf(0)
		if ok {
			if d := w.distanceTo(r, rs.snap); !math.IsInf(d, 0) {
				cost = (d + rs.snap.Offset) / speed
			}
		}
		results = append(results, layer.PathCost{Target: rs.RouteStop, Cost: cost})
	}
	return results, nil
}

// 步行可达的街道部分，部分可达的街道在可达位置截断
func (r *Router) walkServiceArea(
	ctx context.Context,
	origin orb.Point, network layer.Selection, speed, budget float64,
) (orb.MultiLineString, error) {
	limit := budget * speed
	if limit <= 0 {
		return orb.MultiLineString{}, nil
	}
	w, ok := r.searchWalk(origin, network, limit)
	if !ok {
		return orb.MultiLineString{}, nil
	}
	area := orb.MultiLineString{}
	for _, id := range network.IDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, found := r.streets[id]
		if !found {
			return nil, errNotFound(layer.KindStreet, id)
		}
		ivs := []interval{}
		if du := w.tree.Cost(s.HeadNodeId); du < limit {
			ivs = append(ivs, interval{0, math.Min(s.Length, limit-du)})
		}
		if dv := w.tree.Cost(s.TailNodeId); dv < limit {
			ivs = append(ivs, interval{math.Max(0, s.Length-(limit-dv)), s.Length})
		}
		if id == w.origin.Street && w.origin.Offset < limit {
			rest := limit - w.origin.Offset
			ivs = append(ivs, interval{math.Max(0, w.origin.S-rest), math.Min(s.Length, w.origin.S+rest)})
		}
		for _, iv := range mergeIntervals(ivs) {
			if iv.to-iv.from <= 0 {
				continue
			}
			if iv.from == 0 && iv.to == s.Length {
				area = append(area, s.Geometry.Clone())
			} else {
				area = append(area, subLine(s.Geometry, iv.from, iv.to))
			}
		}
	}
	return area, nil
}
