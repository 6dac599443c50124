// Package config loads the search and service settings from a YAML file,
// an optional .env file and ISOCHRONE_* environment variables.
package config

type SearchConfig struct {
	// 时间预算，分钟
	BudgetMinutes float64 `yaml:"budget_minutes" validate:"gt=0"`
	WalkSpeed     float64 `yaml:"walk_speed_ft_per_hour" validate:"gt=0"`
	// 重复搜索阈值，小于1会破坏到达时间的单调性
	RepeatThreshold      float64 `yaml:"repeat_threshold" validate:"gte=1"`
	ConsolidateThreshold int     `yaml:"consolidate_threshold" validate:"gt=0"`
	OriginMode           string  `yaml:"origin_mode" validate:"oneof=walking transit"`
	WaitAtOrigin         bool    `yaml:"wait_at_origin"`
	// 线路缺少K_FT_PR_HR时的默认速度
	DefaultRouteSpeed float64 `yaml:"default_route_speed_kft_per_hour" validate:"gt=0"`
}

// NetworkConfig locates the input layers. Source is either a file path or
// {db}.{col} in MongoDB.
type NetworkConfig struct {
	MongoURI string `yaml:"mongo_uri" validate:"omitempty,uri"`
	Source   string `yaml:"source"`
	// 空表示不使用缓存
	Cache string `yaml:"cache"`
	// 覆盖线路发车频率的CSV文件
	Headways string `yaml:"headways"`
}

type ServerConfig struct {
	Listen string `yaml:"listen" validate:"required,hostname_port"`
	Pprof  string `yaml:"pprof" validate:"omitempty,hostname_port"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error fatal panic"`
	// 非空时同时写入滚动日志文件
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// Config is the root configuration structure
type Config struct {
	Search  SearchConfig  `yaml:"search" validate:"required"`
	Network NetworkConfig `yaml:"network"`
	Server  ServerConfig  `yaml:"server" validate:"required"`
	Log     LogConfig     `yaml:"log" validate:"required"`
}
