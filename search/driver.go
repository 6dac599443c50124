package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"git.fiblab.net/sim/isochrone/layer"
)

// Options tune a run. Zero values fall back to the defaults.
type Options struct {
	// 步行速度，英尺/小时
	WalkSpeed float64
	// 重复搜索阈值，>=1
	RepeatThreshold float64
	// 碎片数超过该值时合并
	ConsolidateThreshold int
	// 从起点步行到站点后是否计入候车时间
	WaitAtOrigin bool
	// 线路未给出速度时使用，千英尺/小时
	DefaultRouteKFeetPerHour float64
	// CancelCheck is polled once per loop iteration; true stops the run.
	CancelCheck func() bool
}

func (o Options) withDefaults() Options {
	if o.WalkSpeed <= 0 {
		o.WalkSpeed = WalkFeetPerHour
	}
	if o.RepeatThreshold == 0 {
		o.RepeatThreshold = 1
	}
	if o.ConsolidateThreshold <= 0 {
		o.ConsolidateThreshold = DefaultConsolidateThreshold
	}
	if o.DefaultRouteKFeetPerHour <= 0 {
		o.DefaultRouteKFeetPerHour = DefaultRouteKFeetPerHour
	}
	return o
}

type state int32

const (
	stateIdle state = iota
	stateSeeded
	stateRunning
	stateConverged
)

// Driver owns the state of exactly one run.
type Driver struct {
	network Network
	opts    Options
	state   atomic.Int32
}

func NewDriver(network Network, opts Options) *Driver {
	return &Driver{network: network, opts: opts.withDefaults()}
}

// Run is a shorthand for NewDriver(network, opts).Run(ctx, origin, budget).
func Run(ctx context.Context, network Network, origin Origin, budget float64, opts Options) (*Result, error) {
	return NewDriver(network, opts).Run(ctx, origin, budget)
}

// Run searches from origin until no candidate is left. budget is in hours.
// A canceled run returns the partial result together with ErrCanceled.
func (d *Driver) Run(ctx context.Context, origin Origin, budget float64) (res *Result, err error) {
	if budget <= 0 {
		return nil, ErrInvalidBudget
	}
	if !d.state.CompareAndSwap(int32(stateIdle), int32(stateSeeded)) {
		return nil, ErrDriverUsed
	}
	// panic recover
	defer func() {
		if e := recover(); e != nil {
			res = nil
			err = fmt.Errorf("panic: search %v with input origin=%+v, budget=%v", e, origin, budget)
			log.Errorln(err)
		}
	}()

	walking := NewRegistry(Walking, budget, d.opts.RepeatThreshold)
	transit := NewRegistry(Transit, budget, d.opts.RepeatThreshold)
	frontier := NewFrontier(walking, transit)
	e := &Expander{
		network:     d.network,
		opts:        d.opts,
		budget:      budget,
		walking:     walking,
		transit:     transit,
		frontier:    frontier,
		walkArea:    NewAccumulator(Walking, d.network, d.opts.ConsolidateThreshold),
		transitArea: NewAccumulator(Transit, d.network, d.opts.ConsolidateThreshold),
	}

	seed, err := d.seed(origin)
	if err != nil {
		return nil, err
	}
	if seed.Mode == Walking {
		walking.Admit(seed.Location, seed.Time)
	} else {
		transit.Admit(seed.Location, seed.Time)
	}
	frontier.Push(seed)
	log.Debugf("seeded %v, budget %.4fh", seed, budget)

	d.state.Store(int32(stateRunning))
	status := StatusConverged
	expanded := 0
	for {
		if ctx.Err() != nil || (d.opts.CancelCheck != nil && d.opts.CancelCheck()) {
			status = StatusCanceled
			break
		}
		c, ok := frontier.PopNext()
		if !ok {
			break
		}
		if err := e.Expand(ctx, c); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				status = StatusCanceled
				break
			}
			return nil, fmt.Errorf("expand %v: %w", c, err)
		}
		expanded++
	}
	d.state.Store(int32(stateConverged))

	res = &Result{
		Status:       status,
		Walking:      e.walkArea.Area(),
		Transit:      e.transitArea.Area(),
		WalkingTimes: walking.Snapshot(),
		TransitTimes: transit.Snapshot(),
		Expanded:     expanded,
		Stale:        frontier.Stale(),
	}
	log.Debugf("search %v after %d expansions (%d stale), walking stops=%d, transit stops=%d",
		status, expanded, res.Stale, len(res.WalkingTimes), len(res.TransitTimes))
	if status == StatusCanceled {
		return res, ErrCanceled
	}
	return res, nil
}

func (d *Driver) seed(origin Origin) (Candidate, error) {
	c := Candidate{Mode: origin.Mode, IsOrigin: true}
	switch {
	case origin.Mode == Transit:
		rs, ok := d.network.RouteStop(origin.Location)
		if !ok {
			return c, fmt.Errorf("route stop %d: %w", origin.Location, ErrUnknownOrigin)
		}
		c.Location, c.Layer, c.Trip, c.At = rs.ID, layer.KindRouteStop, rs.TripKey, rs.Point
	case origin.Point != nil:
		c.Location, c.Layer, c.At = layer.OriginLocation, layer.KindPoint, *origin.Point
	default:
		stop, ok := d.network.Stop(origin.Location)
		if !ok {
			return c, fmt.Errorf("stop %d: %w", origin.Location, ErrUnknownOrigin)
		}
		c.Location, c.Layer, c.At = stop.ID, layer.KindStop, stop.Point
	}
	return c, nil
}
