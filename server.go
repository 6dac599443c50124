package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/isochrone/config"
	"git.fiblab.net/sim/isochrone/layer"
	"git.fiblab.net/sim/isochrone/router"
	"git.fiblab.net/sim/isochrone/search"
	"git.fiblab.net/sim/isochrone/store"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// 读取路网数据并构建router，可选地覆盖线路发车频率
func loadRouter(ctx context.Context, cfg *config.Config) (*router.Router, error) {
	path, err := store.NewPath(cfg.Network.Source)
	if err != nil {
		return nil, fmt.Errorf("invalid network path: %w", err)
	}
	ds, err := store.Load(ctx, cfg.Network.MongoURI, path, cfg.Network.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to load network from %v: %w", path, err)
	}
	r, err := router.New(ds)
	if err != nil {
		return nil, err
	}
	if cfg.Network.Headways != "" {
		headways, err := store.ReadHeadways(cfg.Network.Headways)
		if err != nil {
			return nil, fmt.Errorf("failed to read headways: %w", err)
		}
		if err := store.ApplyHeadways(r, headways); err != nil {
			return nil, fmt.Errorf("failed to apply headways: %w", err)
		}
	}
	return r, nil
}

type IsochroneServer struct {
	router *router.Router
	cfg    *config.Config

	// 接口开启true或关闭false
	ok bool
	// 条件变量
	cond *sync.Cond
}

func NewIsochroneServer(ctx context.Context, cfg *config.Config) (*IsochroneServer, error) {
	r, err := loadRouter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newIsochroneServer(r, cfg), nil
}

func newIsochroneServer(r *router.Router, cfg *config.Config) *IsochroneServer {
	return &IsochroneServer{
		router: r,
		cfg:    cfg,
		ok:     true, cond: sync.NewCond(&sync.Mutex{})}
}

// NewIsochroneServiceHandler returns the path prefix and the handler of the
// service, in the shape http.ServeMux.Handle expects.
func NewIsochroneServiceHandler(s *IsochroneServer, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(IsochroneServiceSearchProcedure, connect.NewUnaryHandler(
		IsochroneServiceSearchProcedure, s.Search, opts...,
	))
	mux.Handle(IsochroneServiceSetTripFrequenciesProcedure, connect.NewUnaryHandler(
		IsochroneServiceSetTripFrequenciesProcedure, s.SetTripFrequencies, opts...,
	))
	mux.Handle(IsochroneServiceGetTripFrequenciesProcedure, connect.NewUnaryHandler(
		IsochroneServiceGetTripFrequenciesProcedure, s.GetTripFrequencies, opts...,
	))
	return "/" + IsochroneServiceName + "/", mux
}

// 暂停-恢复机制
func (s *IsochroneServer) wait() {
	s.cond.L.Lock()
	for !s.ok {
		// 暂停中
		s.cond.Wait()
	}
	s.cond.L.Unlock()
}

func (s *IsochroneServer) origin(in *SearchRequest) (search.Origin, error) {
	mode, err := search.ParseMode(in.Mode)
	if err != nil {
		return search.Origin{}, connect.NewError(connect.CodeInvalidArgument, err)
	}
	origin := search.Origin{Mode: mode, Location: layer.LocationID(in.Fid)}
	switch {
	case in.Point != nil && mode == search.Transit:
		return origin, connect.NewError(
			connect.CodeInvalidArgument,
			errors.New("transit search must start at a route stop"),
		)
	case in.Point != nil:
		origin.Point = &orb.Point{in.Point.X, in.Point.Y}
	case mode == search.Transit && !s.router.HasRouteStop(origin.Location):
		return origin, connect.NewError(
			connect.CodeNotFound,
			fmt.Errorf("no route stop fid: %v", in.Fid),
		)
	case mode == search.Walking && !s.router.HasStop(origin.Location):
		return origin, connect.NewError(
			connect.CodeNotFound,
			fmt.Errorf("no stop fid: %v", in.Fid),
		)
	}
	return origin, nil
}

func reachedStops(times map[layer.LocationID]float64) []ReachedStop {
	stops := lo.FilterMap(lo.Keys(times), func(id layer.LocationID, _ int) (ReachedStop, bool) {
		return ReachedStop{Fid: int64(id), Minutes: times[id] * 60}, id != layer.OriginLocation
	})
	sort.Slice(stops, func(i, j int) bool { return stops[i].Fid < stops[j].Fid })
	return stops
}

func (s *IsochroneServer) Search(
	ctx context.Context,
	req *connect.Request[SearchRequest],
) (*connect.Response[SearchResponse], error) {
	s.wait()
	in := req.Msg
	origin, err := s.origin(in)
	if err != nil {
		return nil, err
	}
	budget := s.cfg.Budget()
	if in.BudgetMinutes > 0 {
		budget = in.BudgetMinutes / 60
	}
	opts := s.cfg.Options()
	if in.WaitAtOrigin != nil {
		opts.WaitAtOrigin = *in.WaitAtOrigin
	}
	log.Debugf("search %v from %+v within %.4fh", origin.Mode, in, budget)
	res, err := search.Run(ctx, s.router, origin, budget, opts)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrCanceled):
			return nil, connect.NewError(connect.CodeCanceled, err)
		case errors.Is(err, search.ErrUnknownOrigin):
			return nil, connect.NewError(connect.CodeNotFound, err)
		case errors.Is(err, search.ErrInvalidBudget):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		default:
			log.Errorf("search %+v failed: %v", in, err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
	}
	return connect.NewResponse(&SearchResponse{
		Status:       res.Status.String(),
		WalkingArea:  res.Walking.Geometry,
		TransitArea:  res.Transit.Geometry,
		WalkingStops: reachedStops(res.WalkingTimes),
		TransitStops: reachedStops(res.TransitTimes),
		Expanded:     res.Expanded,
		Stale:        res.Stale,
	}), nil
}

func frequencyError(err error) error {
	switch {
	case errors.Is(err, router.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, router.ErrInvalidFrequency):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func (s *IsochroneServer) SetTripFrequencies(
	ctx context.Context,
	req *connect.Request[SetTripFrequenciesRequest],
) (*connect.Response[SetTripFrequenciesResponse], error) {
	s.wait()
	for _, f := range req.Msg.Frequencies {
		if err := s.router.SetTripsPerHour(f.TripKey, f.TripsPerHour); err != nil {
			return nil, frequencyError(err)
		}
	}
	return connect.NewResponse(&SetTripFrequenciesResponse{}), nil
}

func (s *IsochroneServer) GetTripFrequencies(
	ctx context.Context,
	req *connect.Request[GetTripFrequenciesRequest],
) (*connect.Response[GetTripFrequenciesResponse], error) {
	s.wait()
	trips := req.Msg.Trips
	if len(trips) == 0 {
		trips = s.router.Trips()
	}
	out := &GetTripFrequenciesResponse{Frequencies: make([]TripFrequency, 0, len(trips))}
	for _, trip := range trips {
		tph, err := s.router.GetTripsPerHour(trip)
		if err != nil {
			return nil, frequencyError(err)
		}
		out.Frequencies = append(out.Frequencies, TripFrequency{TripKey: trip, TripsPerHour: tph})
	}
	return connect.NewResponse(out), nil
}

// 暂停服务
func (s *IsochroneServer) Suspend() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.ok = false
}

// 恢复服务
func (s *IsochroneServer) Resume() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.ok = true
	s.cond.Broadcast()
}

// 关闭服务
func (s *IsochroneServer) Close() {
	s.router.Close()
}
