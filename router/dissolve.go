package router

import (
	"sort"

	"github.com/paulmach/orb"
)

// UnionGeometries concatenates the line sets without consolidation.
func (r *Router) UnionGeometries(parts ...orb.MultiLineString) (orb.MultiLineString, error) {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make(orb.MultiLineString, 0, n)
	for _, p := range parts {
		for _, ls := range p {
			if len(ls) >= 2 {
				out = append(out, ls)
			}
		}
	}
	return out, nil
}

type segment struct {
	a, b orb.Point
}

func lessPoint(p, q orb.Point) bool {
	if p[0] != q[0] {
		return p[0] < q[0]
	}
	return p[1] < q[1]
}

// 无向线段的规范形式
func newSegment(p, q orb.Point) segment {
	if lessPoint(q, p) {
		p, q = q, p
	}
	return segment{a: p, b: q}
}

// Dissolve removes duplicated segments and joins segments meeting at
// vertices of degree two into continuous lines. The output is ordered, so
// equal inputs give equal outputs.
func (r *Router) Dissolve(g orb.MultiLineString) (orb.MultiLineString, error) {
	return dissolve(g), nil
}

func dissolve(g orb.MultiLineString) orb.MultiLineString {
	seen := make(map[segment]bool)
	segs := []segment{}
	for _, ls := range g {
		for i := 0; i+1 < len(ls); i++ {
			if ls[i].Equal(ls[i+1]) {
				continue
			}
			s := newSegment(ls[i], ls[i+1])
			if !seen[s] {
				seen[s] = true
				segs = append(segs, s)
			}
		}
	}
	sort.Slice(segs, func(i, j int) bool {
		if !segs[i].a.Equal(segs[j].a) {
			return lessPoint(segs[i].a, segs[j].a)
		}
		return lessPoint(segs[i].b, segs[j].b)
	})
	// 端点 -> 线段下标
	adj := make(map[orb.Point][]int)
	for i, s := range segs {
		adj[s.a] = append(adj[s.a], i)
		adj[s.b] = append(adj[s.b], i)
	}
	used := make([]bool, len(segs))
	// 沿度为2的点延伸
	extend := func(line orb.LineString) orb.LineString {
		for {
			end := line[len(line)-1]
			ids := adj[end]
			if len(ids) != 2 {
				return line
			}
			next := -1
			for _, id := range ids {
				if !used[id] {
					next = id
				}
			}
			if next < 0 {
				return line
			}
			used[next] = true
			s := segs[next]
			if s.a.Equal(end) {
				line = append(line, s.b)
			} else {
				line = append(line, s.a)
			}
		}
	}
	out := orb.MultiLineString{}
	for i, s := range segs {
		if used[i] {
			continue
		}
		used[i] = true
		line := extend(orb.LineString{s.a, s.b})
		line.Reverse()
		line = extend(line)
		// 保持规范方向
		if lessPoint(line[len(line)-1], line[0]) {
			line.Reverse()
		}
		out = append(out, line)
	}
	return out
}
