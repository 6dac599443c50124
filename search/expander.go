package search

import (
	"context"
	"fmt"
	"sort"

	"git.fiblab.net/sim/isochrone/layer"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// Expander turns one popped candidate into new candidates and one or more
// service-area fragments.
type Expander struct {
	network Network
	opts    Options
	budget  float64

	walking, transit      *Registry
	frontier              *Frontier
	walkArea, transitArea *Accumulator
}

// 过滤不可达或超出预算的结果，按cost和fid排序，不修改输入
func (e *Expander) reachable(c Candidate, pcs []layer.PathCost) []layer.PathCost {
	out := lo.Filter(pcs, func(pc layer.PathCost, _ int) bool {
		return pc.HasCost() && c.Time+pc.Cost < e.budget
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost < out[j].Cost
		}
		return out[i].Target.ID < out[j].Target.ID
	})
	return out
}

func (e *Expander) Expand(ctx context.Context, c Candidate) error {
	switch c.Mode {
	case Walking:
		return e.expandWalking(ctx, c)
	case Transit:
		return e.expandTransit(ctx, c)
	default:
		return fmt.Errorf("unknown mode %v", c.Mode)
	}
}

func (e *Expander) expandWalking(ctx context.Context, c Candidate) error {
	remaining := e.budget - c.Time
	region := e.network.BufferRegion(c.At, WalkableDistance(remaining, e.opts.WalkSpeed))
	streets, err := e.network.ClipStreets(region)
	if err != nil {
		return fmt.Errorf("clip streets around %v: %w", c, err)
	}
	if streets.Empty() {
		log.Debugf("no street around %v", c)
		return nil
	}
	stops, err := e.network.ClipRouteStops(region)
	if err != nil {
		return fmt.Errorf("clip route stops around %v: %w", c, err)
	}

	var paths []layer.PathCost
	if !stops.Empty() {
		pcs, err := e.network.ShortestPathsToTargets(ctx, c.At, streets, stops, e.opts.WalkSpeed)
		if err != nil {
			return fmt.Errorf("walking paths from %v: %w", c, err)
		}
		paths = e.reachable(c, pcs)
	}
	area, err := e.network.ServiceAreaFromPoint(ctx, c.At, streets, e.opts.WalkSpeed, remaining)
	if err != nil {
		return fmt.Errorf("walking service area of %v: %w", c, err)
	}

	for _, pc := range paths {
		arrival := c.Time + pc.Cost
		// 步行到达的站点记入步行登记表
		if stop, ok := e.network.ResolveStop(pc.Target.StopID); ok {
			e.walking.Admit(stop.ID, arrival)
		} else {
			log.Debugf("route stop %d has no pedestrian stop (stop_id=%d)", pc.Target.ID, pc.Target.StopID)
		}
		// 在该站点等车出发
		departure, ok := e.departure(pc.Target.TripKey, arrival, c.IsOrigin && !e.opts.WaitAtOrigin)
		if !ok {
			continue
		}
		e.pushTransit(pc.Target, departure)
	}
	return e.walkArea.Merge(Fragment{Geometry: area, Time: c.Time})
}

func (e *Expander) expandTransit(ctx context.Context, c Candidate) error {
	network, stops, err := e.network.RestrictToRouteDirection(c.Trip)
	if err != nil {
		return fmt.Errorf("restrict to trip %v: %w", c.Trip, err)
	}
	route, ok := e.network.Route(c.Trip)
	if !ok || network.Empty() || stops.Empty() {
		log.Debugf("trip %v has no stop, skip %v", c.Trip, c)
		return nil
	}
	pcs, err := e.network.ShortestPathsToTargets(ctx, c.At, network, stops, route.FeetPerHour(e.opts.DefaultRouteKFeetPerHour))
	if err != nil {
		return fmt.Errorf("transit paths from %v: %w", c, err)
	}

	// 按到达时间顺序处理，一旦遇到已有更早到达记录的站点，
	// 说明后续站点已被更快的车次覆盖，停止
	kept := []layer.PathCost{}
	for _, pc := range e.reachable(c, pcs) {
		arrival := c.Time + pc.Cost
		if t, found := e.transit.Lookup(pc.Target.ID); found && t < arrival {
			log.Debugf("trip %v met better departure at route stop %d", c.Trip, pc.Target.ID)
			break
		}
		e.transit.Admit(pc.Target.ID, arrival)
		kept = append(kept, pc)
	}

	for _, pc := range kept {
		arrival := c.Time + pc.Cost
		// 换乘同一站点的其他线路
		for _, next := range e.network.DepartingTrips(pc.Target.StopID) {
			if next.TripKey == c.Trip {
				continue
			}
			if departure, ok := e.departure(next.TripKey, arrival, false); ok {
				e.pushTransit(next, departure)
			}
		}
		// 下车后步行
		stop, ok := e.network.ResolveStop(pc.Target.StopID)
		if !ok {
			log.Debugf("route stop %d has no pedestrian stop (stop_id=%d)", pc.Target.ID, pc.Target.StopID)
		} else if e.walking.Admit(stop.ID, arrival) {
			e.frontier.Push(Candidate{
				Location: stop.ID,
				Layer:    layer.KindStop,
				Time:     arrival,
				Mode:     Walking,
				At:       stop.Point,
			})
		}
		if len(pc.Path) >= 2 && pc.Cost > 0 {
			if err := e.transitArea.Merge(Fragment{Geometry: orb.MultiLineString{pc.Path}, Time: arrival}); err != nil {
				return err
			}
		}
	}
	return nil
}

// 出发时间 = 到达时间 + 平均候车时间，停运或超出预算时ok为false
func (e *Expander) departure(trip layer.TripKey, arrival float64, skipWait bool) (float64, bool) {
	route, ok := e.network.Route(trip)
	if !ok {
		return 0, false
	}
	wait, ok := TransitWaitDelta(route.TripsPerHour)
	if !ok {
		return 0, false
	}
	if skipWait {
		wait = 0
	}
	departure := arrival + wait
	return departure, departure < e.budget
}

func (e *Expander) pushTransit(rs layer.RouteStop, departure float64) {
	if !e.transit.Admit(rs.ID, departure) {
		return
	}
	e.frontier.Push(Candidate{
		Location: rs.ID,
		Layer:    layer.KindRouteStop,
		Time:     departure,
		Mode:     Transit,
		Trip:     rs.TripKey,
		At:       rs.Point,
	})
}
