package router

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 线性参考：点在折线上的投影位置s（距起点的长度）和点到折线的距离
func project(line orb.LineString, p orb.Point) (s float64, offset float64) {
	return projectFrom(line, p, 0)
}

// 只在折线上from之后的部分投影，s >= from
func projectFrom(line orb.LineString, p orb.Point, from float64) (s float64, offset float64) {
	if len(line) == 1 {
		return 0, planar.Distance(p, line[0])
	}
	s, offset = from, math.Inf(0)
	acc := 0.0
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		segLen := planar.Distance(a, b)
		if acc+segLen < from {
			acc += segLen
			continue
		}
		t := 0.0
		if segLen > 0 {
			lower := math.Max(0, (from-acc)/segLen)
			t = ((p[0]-a[0])*(b[0]-a[0]) + (p[1]-a[1])*(b[1]-a[1])) / (segLen * segLen)
			t = math.Max(lower, math.Min(1, t))
		}
		q := orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
		if d := planar.Distance(p, q); d < offset {
			offset = d
			s = acc + segLen*t
		}
		acc += segLen
	}
	return s, offset
}

func pointAt(line orb.LineString, s float64) orb.Point {
	if len(line) == 0 {
		return orb.Point{}
	}
	acc := 0.0
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		segLen := planar.Distance(a, b)
		if acc+segLen >= s && segLen > 0 {
			t := (s - acc) / segLen
			t = math.Max(0, math.Min(1, t))
			return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
		}
		acc += segLen
	}
	return line[len(line)-1]
}

// 截取折线上[from, to]区间，from > to时结果按反方向排列
func subLine(line orb.LineString, from, to float64) orb.LineString {
	if from > to {
		sub := subLine(line, to, from)
		sub.Reverse()
		return sub
	}
	out := orb.LineString{pointAt(line, from)}
	acc := 0.0
	for i := 0; i+1 < len(line); i++ {
		acc += planar.Distance(line[i], line[i+1])
		if acc > from && acc < to {
			out = append(out, line[i+1])
		}
	}
	end := pointAt(line, to)
	if !end.Equal(out[len(out)-1]) || len(out) == 1 {
		out = append(out, end)
	}
	return out
}

type interval struct {
	from, to float64
}

// 合并重叠区间，结果按起点排序
func mergeIntervals(in []interval) []interval {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].from < in[j].from })
	out := []interval{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		if iv.from <= last.to {
			last.to = math.Max(last.to, iv.to)
		} else {
			out = append(out, iv)
		}
	}
	return out
}
