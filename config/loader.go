package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"git.fiblab.net/sim/isochrone/search"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var log = logrus.WithField("module", "config")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ISOCHRONE_"

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			BudgetMinutes:        15,
			WalkSpeed:            search.WalkFeetPerHour,
			RepeatThreshold:      1,
			ConsolidateThreshold: search.DefaultConsolidateThreshold,
			OriginMode:           "transit",
			DefaultRouteSpeed:    search.DefaultRouteKFeetPerHour,
		},
		Server: ServerConfig{
			Listen: "localhost:52101",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path on top of the defaults, applies the .env files and the
// environment overrides, then validates the result. An empty path skips
// the file; a missing .env file is not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

type envVar struct {
	name string
	set  func(string) error
}

func str(p *string) func(string) error {
	return func(v string) error { *p = v; return nil }
}

func float(p *float64) func(string) error {
	return func(v string) (err error) {
		*p, err = strconv.ParseFloat(v, 64)
		return
	}
}

func integer(p *int) func(string) error {
	return func(v string) (err error) {
		*p, err = strconv.Atoi(v)
		return
	}
}

func boolean(p *bool) func(string) error {
	return func(v string) (err error) {
		*p, err = strconv.ParseBool(v)
		return
	}
}

func (c *Config) applyEnv() error {
	vars := []envVar{
		{"BUDGET_MINUTES", float(&c.Search.BudgetMinutes)},
		{"WALK_SPEED_FT_PER_HOUR", float(&c.Search.WalkSpeed)},
		{"REPEAT_THRESHOLD", float(&c.Search.RepeatThreshold)},
		{"CONSOLIDATE_THRESHOLD", integer(&c.Search.ConsolidateThreshold)},
		{"ORIGIN_MODE", str(&c.Search.OriginMode)},
		{"WAIT_AT_ORIGIN", boolean(&c.Search.WaitAtOrigin)},
		{"DEFAULT_ROUTE_SPEED_KFT_PER_HOUR", float(&c.Search.DefaultRouteSpeed)},
		{"MONGO_URI", str(&c.Network.MongoURI)},
		{"NETWORK", str(&c.Network.Source)},
		{"CACHE", str(&c.Network.Cache)},
		{"HEADWAYS", str(&c.Network.Headways)},
		{"LISTEN", str(&c.Server.Listen)},
		{"PPROF", str(&c.Server.Pprof)},
		{"LOG_LEVEL", str(&c.Log.Level)},
		{"LOG_FILE", str(&c.Log.File)},
	}
	for _, v := range vars {
		value, ok := os.LookupEnv(EnvPrefix + v.name)
		if !ok {
			continue
		}
		if err := v.set(value); err != nil {
			return fmt.Errorf("%s%s=%q: %w", EnvPrefix, v.name, value, err)
		}
		log.Debugf("%s%s overrides config", EnvPrefix, v.name)
	}
	return nil
}

// Budget is the time budget in hours.
func (c *Config) Budget() float64 {
	return c.Search.BudgetMinutes / 60
}

func (c *Config) OriginMode() search.Mode {
	mode, err := search.ParseMode(c.Search.OriginMode)
	if err != nil {
		log.Panicf("invalid origin mode after validation: %v", err)
	}
	return mode
}

// Options converts the search section into search options.
func (c *Config) Options() search.Options {
	return search.Options{
		WalkSpeed:                c.Search.WalkSpeed,
		RepeatThreshold:          c.Search.RepeatThreshold,
		ConsolidateThreshold:     c.Search.ConsolidateThreshold,
		WaitAtOrigin:             c.Search.WaitAtOrigin,
		DefaultRouteKFeetPerHour: c.Search.DefaultRouteSpeed,
	}
}
