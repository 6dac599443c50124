package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.fiblab.net/sim/isochrone/config"
	"git.fiblab.net/sim/isochrone/layer"
	"git.fiblab.net/sim/isochrone/search"
	"git.fiblab.net/sim/isochrone/store"
	"github.com/natefinch/lumberjack"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
	"github.com/urfave/cli/v2"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var (
	log = logrus.WithField("module", "main")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

const configKey = "config"

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})

	app := &cli.App{
		Name:  "isochrone",
		Usage: "walking and transit service areas within a time budget",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config file path"},
			&cli.StringSliceFlag{Name: "env", Usage: ".env files to load (default .env)"},
			&cli.StringFlag{Name: "mongo_uri", Usage: "mongo db uri"},
			&cli.StringFlag{Name: "network", Usage: "network database and collection [format: {fspath} or {db}.{col}]"},
			&cli.StringFlag{Name: "cache", Usage: "input cache dir path (empty means disable cache)"},
			&cli.StringFlag{Name: "headways", Usage: "CSV file overriding trips per hour [columns: rte,dir,trips_per_hour]"},
			&cli.StringFlag{Name: "log-level", Usage: "log level [debug, info, warn, error, fatal, panic]"},
			&cli.StringFlag{Name: "log-file", Usage: "rotating log file path"},
		},
		Before: setup,
		Commands: []*cli.Command{
			serveCommand(),
			searchCommand(),
			benchmarkCommand(),
			importCommand(),
			headwaysCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// 读取配置，命令行参数优先
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), c.StringSlice("env")...)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	overrides := map[string]*string{
		"mongo_uri": &cfg.Network.MongoURI,
		"network":   &cfg.Network.Source,
		"cache":     &cfg.Network.Cache,
		"headways":  &cfg.Network.Headways,
		"log-level": &cfg.Log.Level,
		"log-file":  &cfg.Log.File,
	}
	for name, p := range overrides {
		if c.IsSet(name) {
			*p = c.String(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	setupLogging(cfg.Log)
	c.App.Metadata = map[string]interface{}{configKey: cfg}
	return nil
}

func setupLogging(cfg config.LogConfig) {
	if level, ok := LOG_LEVELS[cfg.Level]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", cfg.Level)
	}
	if cfg.File != "" {
		logrus.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}))
	}
}

func getConfig(c *cli.Context) *config.Config {
	return c.App.Metadata[configKey].(*config.Config)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the isochrone service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "connect listening address"},
			&cli.StringFlag{Name: "pprof", Usage: "pprof listening address (empty means disable)"},
		},
		Action: func(c *cli.Context) error {
			cfg := getConfig(c)
			if c.IsSet("listen") {
				cfg.Server.Listen = c.String("listen")
			}
			if c.IsSet("pprof") {
				cfg.Server.Pprof = c.String("pprof")
			}
			server, err := NewIsochroneServer(c.Context, cfg)
			if err != nil {
				return err
			}
			if cfg.Server.Pprof != "" {
				// 启动pprof
				startHTTPDebugger(cfg.Server.Pprof)
			}
			return serve(cfg.Server.Listen, server)
		},
	}
}

func serve(addr string, server *IsochroneServer) error {
	mux := http.NewServeMux()
	mux.Handle(NewIsochroneServiceHandler(server))
	// 使用HTTP/2 w.o. TLS
	s := &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// 优雅退出
	// 创建监听退出chan
	signalCh := make(chan os.Signal, 1)
	// 监听指定信号 ctrl+c kill，USR1暂停 USR2恢复
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range signalCh {
			switch sig {
			case syscall.SIGUSR1:
				log.Info("suspend")
				server.Suspend()
				continue
			case syscall.SIGUSR2:
				log.Info("resume")
				server.Resume()
				continue
			}
			log.Info("stopping...")
			go func() {
				<-signalCh
				os.Exit(1) // 强制结束
			}()
			// 暂停时也要放行等待中的请求
			server.Resume()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.Shutdown(ctx)
			cancel()
			server.Close()
			return
		}
	}()

	log.Infof("server listening at %v", s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	time.Sleep(1 * time.Second) // 延迟等待"优雅退出"
	log.Info("isochrone closes")
	return nil
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "run one search and write the service areas as GeoJSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Usage: "origin mode [walking, transit] (default from config)"},
			&cli.Int64Flag{Name: "fid", Usage: "origin route stop fid (transit) or stop fid (walking)"},
			&cli.Float64SliceFlag{Name: "point", Usage: "walking origin coordinates x,y"},
			&cli.Float64Flag{Name: "minutes", Usage: "time budget in minutes (default from config)"},
			&cli.BoolFlag{Name: "wait-at-origin", Usage: "count the wait at the first boarding stop"},
			&cli.StringFlag{Name: "output", Required: true, Usage: "output GeoJSON path"},
		},
		Action: func(c *cli.Context) error {
			cfg := getConfig(c)
			if c.IsSet("mode") {
				cfg.Search.OriginMode = c.String("mode")
			}
			if c.IsSet("minutes") {
				cfg.Search.BudgetMinutes = c.Float64("minutes")
			}
			if c.IsSet("wait-at-origin") {
				cfg.Search.WaitAtOrigin = c.Bool("wait-at-origin")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			r, err := loadRouter(c.Context, cfg)
			if err != nil {
				return err
			}
			origin := search.Origin{Mode: cfg.OriginMode(), Location: layer.LocationID(c.Int64("fid"))}
			if p := c.Float64Slice("point"); len(p) > 0 {
				if len(p) != 2 {
					return fmt.Errorf("point needs x,y, got %v", p)
				}
				origin.Point = &orb.Point{p[0], p[1]}
			}
			// ctrl+c取消搜索，仍输出已搜索到的部分
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			start := time.Now()
			res, err := search.Run(ctx, r, origin, cfg.Budget(), cfg.Options())
			if err != nil && !errors.Is(err, search.ErrCanceled) {
				return err
			}
			log.Infof("search %v in %v: %d expansions, %d stops, %d route stops",
				res.Status, time.Since(start), res.Expanded, len(res.WalkingTimes), len(res.TransitTimes))
			if err := writeResult(c.String("output"), r, res); err != nil {
				return err
			}
			return err
		},
	}
}

func benchmarkCommand() *cli.Command {
	return &cli.Command{
		Name:  "benchmark",
		Usage: "run searches from random route stops",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Value: 1000, Usage: "the random search count for benchmark"},
			&cli.Int64Flag{Name: "seed", Value: 0, Usage: "the seed for benchmark"},
			&cli.IntFlag{Name: "cpu", Value: 1, Usage: "the cpu count for benchmark"},
			&cli.StringFlag{Name: "pprof", Value: "localhost:52102", Usage: "pprof listening address"},
		},
		Action: func(c *cli.Context) error {
			cfg := getConfig(c)
			server, err := NewIsochroneServer(c.Context, cfg)
			if err != nil {
				return err
			}
			if addr := c.String("pprof"); addr != "" {
				startHTTPDebugger(addr)
			}
			runBenchmark(server, benchmarkOptions{
				count:   c.Int("count"),
				seed:    c.Int64("seed"),
				cpu:     c.Int("cpu"),
				minutes: cfg.Search.BudgetMinutes,
			})
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "upload a GeoJSON or JSON network file into MongoDB",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Required: true, Usage: "network file path"},
			&cli.StringFlag{Name: "to", Required: true, Usage: "target database and collection [format: {db}.{col}]"},
		},
		Action: func(c *cli.Context) error {
			cfg := getConfig(c)
			ds, err := store.ReadDatasetFile(c.String("from"))
			if err != nil {
				return err
			}
			path, err := store.NewPath(c.String("to"))
			if err != nil {
				return err
			}
			if path == nil || path.File != "" {
				return fmt.Errorf("import target must be {db}.{col}: %s", c.String("to"))
			}
			client, err := store.NewClient(c.Context, cfg.Network.MongoURI)
			if err != nil {
				return err
			}
			defer client.Disconnect(context.Background())
			return store.UploadDataset(c.Context, store.GetMongoColl(client, path), ds)
		},
	}
}

func headwaysCommand() *cli.Command {
	return &cli.Command{
		Name:  "headways",
		Usage: "export the trips per hour of every trip as CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Required: true, Usage: "output CSV path"},
		},
		Action: func(c *cli.Context) error {
			r, err := loadRouter(c.Context, getConfig(c))
			if err != nil {
				return err
			}
			headways := []*store.Headway{}
			for _, trip := range r.Trips() {
				tph, err := r.GetTripsPerHour(trip)
				if err != nil {
					return err
				}
				headways = append(headways, &store.Headway{Route: trip.Route, Direction: trip.Direction, TripsPerHour: tph})
			}
			return store.WriteHeadways(c.String("output"), headways)
		},
	}
}
