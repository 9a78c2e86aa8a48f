package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Batch      BatchConfig      `yaml:"batch"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Recommend  RecommendConfig  `yaml:"recommend"`
	Insights   InsightsConfig   `yaml:"insights"`
}

type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// StoreConfig selects the event store backend: mongo, postgres or memory
type StoreConfig struct {
	Driver string `yaml:"driver"`
}

type MongoConfig struct {
	URI        string        `yaml:"uri"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers       []string          `yaml:"brokers"`
	Topics        map[string]string `yaml:"topics"`
	ConsumerGroup string            `yaml:"consumer_group"`
}

type ClickHouseConfig struct {
	Addr         string `yaml:"addr"`
	Database     string `yaml:"database"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type BatchConfig struct {
	Size          int           `yaml:"size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// RateLimitConfig limits ingestion per store. Zero disables the limit.
type RateLimitConfig struct {
	EventsPerSecond int `yaml:"events_per_second"`
}

type RecommendConfig struct {
	ItemMatchLimit       int           `yaml:"item_match_limit"`
	ItemTopN             int           `yaml:"item_top_n"`
	SectionMatchLimit    int           `yaml:"section_match_limit"`
	SectionTopN          int           `yaml:"section_top_n"`
	SectionCovisitWindow time.Duration `yaml:"section_covisit_window"`
}

type InsightsConfig struct {
	LowEngagement  LowEngagementConfig  `yaml:"low_engagement"`
	HiddenGem      HiddenGemConfig      `yaml:"hidden_gem"`
	StrongInterest StrongInterestConfig `yaml:"strong_interest"`
	MaxInsights    int                  `yaml:"max_insights"`
}

type LowEngagementConfig struct {
	MinVisits      int64   `yaml:"min_visits"`
	MaxAvgTimeSecs float64 `yaml:"max_avg_time_secs"`
}

type HiddenGemConfig struct {
	MaxVisits      int64   `yaml:"max_visits"`
	MinAvgTimeSecs float64 `yaml:"min_avg_time_secs"`
}

type StrongInterestConfig struct {
	MinAvgItems float64 `yaml:"min_avg_items"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with their defaults
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8000
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "mongo"
	}
	if cfg.Mongo.URI == "" {
		cfg.Mongo.URI = os.Getenv("MONGODB_URL")
	}
	if cfg.Mongo.URI == "" {
		cfg.Mongo.URI = "mongodb://localhost:27017"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "fashion_intel"
	}
	if cfg.Mongo.Collection == "" {
		cfg.Mongo.Collection = "events"
	}
	if cfg.Mongo.Timeout == 0 {
		cfg.Mongo.Timeout = 10 * time.Second
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = 10
	}

	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = "chanceux-intel-mirror"
	}
	if cfg.ClickHouse.MaxOpenConns == 0 {
		cfg.ClickHouse.MaxOpenConns = 10
	}
	if cfg.ClickHouse.MaxIdleConns == 0 {
		cfg.ClickHouse.MaxIdleConns = 5
	}
	if cfg.Batch.Size == 0 {
		cfg.Batch.Size = 1000
	}
	if cfg.Batch.FlushInterval == 0 {
		cfg.Batch.FlushInterval = 5 * time.Second
	}

	// Recommendation defaults
	if cfg.Recommend.ItemMatchLimit == 0 {
		cfg.Recommend.ItemMatchLimit = 50
	}
	if cfg.Recommend.ItemTopN == 0 {
		cfg.Recommend.ItemTopN = 5
	}
	if cfg.Recommend.SectionMatchLimit == 0 {
		cfg.Recommend.SectionMatchLimit = 100
	}
	if cfg.Recommend.SectionTopN == 0 {
		cfg.Recommend.SectionTopN = 3
	}

	// Insight rule defaults
	if cfg.Insights.LowEngagement.MinVisits == 0 {
		cfg.Insights.LowEngagement.MinVisits = 10
	}
	if cfg.Insights.LowEngagement.MaxAvgTimeSecs == 0 {
		cfg.Insights.LowEngagement.MaxAvgTimeSecs = 120
	}
	if cfg.Insights.HiddenGem.MaxVisits == 0 {
		cfg.Insights.HiddenGem.MaxVisits = 10
	}
	if cfg.Insights.HiddenGem.MinAvgTimeSecs == 0 {
		cfg.Insights.HiddenGem.MinAvgTimeSecs = 180
	}
	if cfg.Insights.StrongInterest.MinAvgItems == 0 {
		cfg.Insights.StrongInterest.MinAvgItems = 3
	}
	if cfg.Insights.MaxInsights == 0 {
		cfg.Insights.MaxInsights = 5
	}
}
