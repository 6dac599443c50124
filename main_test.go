package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/isochrone/config"
	"git.fiblab.net/sim/isochrone/layer"
	"git.fiblab.net/sim/isochrone/layer/layertest"
	"git.fiblab.net/sim/isochrone/router"
	"git.fiblab.net/sim/isochrone/search"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	search *connect.Client[SearchRequest, SearchResponse]
	setTPH *connect.Client[SetTripFrequenciesRequest, SetTripFrequenciesResponse]
	getTPH *connect.Client[GetTripFrequenciesRequest, GetTripFrequenciesResponse]
}

func newTestServer(t *testing.T) (*IsochroneServer, *testClient) {
	r, err := router.New(layertest.Grid())
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Search.BudgetMinutes = 9
	server := newIsochroneServer(r, cfg)

	mux := http.NewServeMux()
	mux.Handle(NewIsochroneServiceHandler(server))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	codec := connect.WithCodec(jsonCodec{})
	return server, &testClient{
		search: connect.NewClient[SearchRequest, SearchResponse](ts.Client(), ts.URL+IsochroneServiceSearchProcedure, codec),
		setTPH: connect.NewClient[SetTripFrequenciesRequest, SetTripFrequenciesResponse](ts.Client(), ts.URL+IsochroneServiceSetTripFrequenciesProcedure, codec),
		getTPH: connect.NewClient[GetTripFrequenciesRequest, GetTripFrequenciesResponse](ts.Client(), ts.URL+IsochroneServiceGetTripFrequenciesProcedure, codec),
	}
}

func minutesOf(stops []ReachedStop, fid layer.LocationID) (float64, bool) {
	for _, s := range stops {
		if s.Fid == int64(fid) {
			return s.Minutes, true
		}
	}
	return 0, false
}

func TestSearch(t *testing.T) {
	_, client := newTestServer(t)
	res, err := client.search.CallUnary(context.Background(), connect.NewRequest(&SearchRequest{
		Mode: "transit",
		Fid:  int64(layertest.OriginRouteStop),
	}))
	require.NoError(t, err)
	assert.Equal(t, "converged", res.Msg.Status)
	assert.NotEmpty(t, res.Msg.TransitArea)
	assert.NotEmpty(t, res.Msg.WalkingArea)
	assert.Positive(t, res.Msg.Expanded)

	minutes, ok := minutesOf(res.Msg.TransitStops, layertest.OriginRouteStop)
	require.True(t, ok)
	assert.Equal(t, 0.0, minutes)
	minutes, ok = minutesOf(res.Msg.TransitStops, layertest.OriginRouteStop+1)
	require.True(t, ok)
	assert.InDelta(t, 1.0, minutes, 1e-9)
	for _, s := range append(res.Msg.WalkingStops, res.Msg.TransitStops...) {
		assert.Less(t, s.Minutes, 9.0)
	}
}

func TestSearchFromPoint(t *testing.T) {
	_, client := newTestServer(t)
	res, err := client.search.CallUnary(context.Background(), connect.NewRequest(&SearchRequest{
		Mode:          "walking",
		Point:         &Point{X: 5000, Y: 5000},
		BudgetMinutes: 3,
	}))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Msg.WalkingArea)
	// 坐标起点不出现在站点列表中
	for _, s := range res.Msg.WalkingStops {
		assert.NotEqual(t, int64(layer.OriginLocation), s.Fid)
	}
}

func TestSearchInvalid(t *testing.T) {
	_, client := newTestServer(t)
	cases := map[string]struct {
		req  *SearchRequest
		code connect.Code
	}{
		"mode":          {&SearchRequest{Mode: "driving", Fid: 1}, connect.CodeInvalidArgument},
		"transit point": {&SearchRequest{Mode: "transit", Point: &Point{}}, connect.CodeInvalidArgument},
		"no route stop": {&SearchRequest{Mode: "transit", Fid: 42}, connect.CodeNotFound},
		"no stop":       {&SearchRequest{Mode: "walking", Fid: 1 << 20}, connect.CodeNotFound},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := client.search.CallUnary(context.Background(), connect.NewRequest(c.req))
			require.Error(t, err)
			assert.Equal(t, c.code, connect.CodeOf(err))
		})
	}
}

func TestTripFrequencies(t *testing.T) {
	_, client := newTestServer(t)
	trip := layer.TripKey{Route: layertest.EastWestRoute}

	all, err := client.getTPH.CallUnary(context.Background(), connect.NewRequest(&GetTripFrequenciesRequest{}))
	require.NoError(t, err)
	assert.Len(t, all.Msg.Frequencies, 5)
	assert.Equal(t, TripFrequency{TripKey: trip, TripsPerHour: 6}, all.Msg.Frequencies[0])

	_, err = client.setTPH.CallUnary(context.Background(), connect.NewRequest(&SetTripFrequenciesRequest{
		Frequencies: []TripFrequency{{TripKey: trip, TripsPerHour: 3}},
	}))
	require.NoError(t, err)
	res, err := client.getTPH.CallUnary(context.Background(), connect.NewRequest(&GetTripFrequenciesRequest{
		Trips: []layer.TripKey{trip},
	}))
	require.NoError(t, err)
	assert.Equal(t, []TripFrequency{{TripKey: trip, TripsPerHour: 3}}, res.Msg.Frequencies)

	_, err = client.setTPH.CallUnary(context.Background(), connect.NewRequest(&SetTripFrequenciesRequest{
		Frequencies: []TripFrequency{{TripKey: trip, TripsPerHour: -1}},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	_, err = client.getTPH.CallUnary(context.Background(), connect.NewRequest(&GetTripFrequenciesRequest{
		Trips: []layer.TripKey{{Route: 77}},
	}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestSuspendResume(t *testing.T) {
	server, client := newTestServer(t)
	server.Suspend()
	done := make(chan error, 1)
	go func() {
		_, err := client.getTPH.CallUnary(context.Background(), connect.NewRequest(&GetTripFrequenciesRequest{}))
		done <- err
	}()
	select {
	case <-done:
		t.Fatal("request served while suspended")
	case <-time.After(100 * time.Millisecond):
	}
	server.Resume()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("request not served after resume")
	}
}

func TestWriteResult(t *testing.T) {
	server, _ := newTestServer(t)
	res, err := search.Run(context.Background(), server.router, search.Origin{
		Mode: search.Transit, Location: layertest.OriginRouteStop,
	}, 0.15, server.cfg.Options())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "isochrone.geojson")
	require.NoError(t, writeResult(path, server.router, res))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)

	count := map[string]int{}
	for _, f := range fc.Features {
		count[f.Properties.MustString("layer")]++
	}
	assert.Equal(t, 1, count[LAYER_WALKING_AREA])
	assert.Equal(t, 1, count[LAYER_TRANSIT_AREA])
	assert.Equal(t, len(res.WalkingTimes), count[LAYER_REACHABLE_STOP])
}
