package main

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	"github.com/sirupsen/logrus"
)

type benchmarkOptions struct {
	count   int
	seed    int64
	cpu     int
	minutes float64
}

func runBenchmark(server *IsochroneServer, opts benchmarkOptions) {
	log.Logger.SetLevel(logrus.WarnLevel)
	// 设置随机种子
	e := rand.New(rand.NewSource(opts.seed))
	// 随机选取count个route stop作为公交起点
	ids := server.router.RouteStopIDs()
	if len(ids) == 0 {
		log.Error("benchmark failed, no route stop")
		return
	}
	reqs := make([]*connect.Request[SearchRequest], opts.count)
	for i := 0; i < opts.count; i++ {
		reqs[i] = connect.NewRequest(&SearchRequest{
			Mode:          "transit",
			Fid:           int64(ids[e.Intn(len(ids))]),
			BudgetMinutes: opts.minutes,
		})
	}

	// 开始benchmark
	start := time.Now()
	var wg sync.WaitGroup
	var success, stops atomic.Int64
	one := func(req *connect.Request[SearchRequest]) {
		res, err := server.Search(context.Background(), req)
		if err != nil {
			log.Error("benchmark failed, err:", err)
			return
		}
		success.Add(1)
		stops.Add(int64(len(res.Msg.TransitStops)))
	}
	if opts.cpu <= 1 {
		for _, req := range reqs {
			one(req)
		}
	} else {
		// 设置cpu数量
		runtime.GOMAXPROCS(opts.cpu)
		wg.Add(opts.count)
		for _, req := range reqs {
			go func(req *connect.Request[SearchRequest]) {
				defer wg.Done()
				one(req)
			}(req)
		}
		wg.Wait()
	}
	timeCost := time.Since(start)
	log.Warn(
		"benchmark finished", "\n",
		"count:", opts.count, "\n",
		"time:", timeCost, "\n",
		"avg:", timeCost/time.Duration(max(opts.count, 1)), "\n",
		"success:", success.Load(), "\n",
		"transit stops per search:", float64(stops.Load())/float64(max(success.Load(), 1)), "\n",
	)
}
