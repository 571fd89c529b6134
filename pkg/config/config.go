package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"TFoldSV/pkg/logger"
	"TFoldSV/pkg/util"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Log         logger.Config `yaml:"log"`
	Server      struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"2m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"5s"`
		RateLimit       struct {
			Burst  int     `yaml:"burst" default:"10" validate:"gte=0"`
			PerSec float64 `yaml:"per_sec" default:"1" validate:"gte=0"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Pipeline Pipeline `yaml:"pipeline"`
	Source   Source   `yaml:"source"`
	Metrics  struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	ClickHouse ClickHouse `yaml:"clickhouse"`
	Kafka      Kafka      `yaml:"kafka"`
	Redis      Redis      `yaml:"redis"`
	Cache      struct {
		Enabled    bool          `yaml:"enabled" default:"true"`
		TTL        time.Duration `yaml:"ttl" default:"1h"`
		MemorySize int           `yaml:"memory_size" default:"256" validate:"gte=1"`
		MemoryTTL  time.Duration `yaml:"memory_ttl" default:"5m"`
	} `yaml:"cache"`
}

// Pipeline holds the defaults a report request falls back to.
type Pipeline struct {
	Interval     string        `yaml:"interval" default:"H8" validate:"required"`
	AutoNames    bool          `yaml:"auto_names" default:"true"`
	ColNames     []string      `yaml:"col_names" validate:"omitempty,min=5,max=6"`
	FoldSize     string        `yaml:"fold_size" default:"year" validate:"oneof=quarter q semester s year y holdout-80-20 80-20 holdout"`
	Label        string        `yaml:"label" default:"binary" validate:"oneof=continuous co binary b_co"`
	Distribution string        `yaml:"distribution" default:"gamma" validate:"oneof=gamma"`
	Shift        bool          `yaml:"shift"`
	Workers      int           `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
	Timeout      time.Duration `yaml:"timeout" default:"2m"`
}

type Source struct {
	Type   string `yaml:"type" default:"synthetic" validate:"oneof=csv clickhouse synthetic"`
	Symbol string `yaml:"symbol"`
	CSV    struct {
		Path        string `yaml:"path"`
		InvertQuote bool   `yaml:"invert_quote"`
	} `yaml:"csv"`
	Synthetic struct {
		Seed  int64         `yaml:"seed" default:"123"`
		Bars  int           `yaml:"bars" default:"26280" validate:"gte=0"`
		Step  time.Duration `yaml:"step" default:"1h"`
		Mu    float64       `yaml:"mu" default:"0.1"`
		Sigma float64       `yaml:"sigma" default:"0.1" validate:"gte=0"`
	} `yaml:"synthetic"`
}

type ClickHouse struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"tfold"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	BarsTable        string        `yaml:"bars_table" default:"tfold.bars"`
	ScoresTable      string        `yaml:"scores_table" default:"tfold.divergence_scores"`
	StoreScores      bool          `yaml:"store_scores" default:"true"`
	InitSchema       bool          `yaml:"init_schema"`
}

type Kafka struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"tfold.fold_reports"`
	RequiredAcks int           `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3" validate:"gte=1"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix" default:"tfold"`
	PoolSize int    `yaml:"pool_size" default:"10" validate:"gte=1"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML file over the defaults and validates the result. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (when present) and the YAML file, then applies environment
// overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set("LOG_LEVEL", &c.Log.Level)
	set("TFOLD_INTERVAL", &c.Pipeline.Interval)
	set("TFOLD_FOLD_SIZE", &c.Pipeline.FoldSize)
	set("TFOLD_LABEL", &c.Pipeline.Label)
	set("TFOLD_SOURCE", &c.Source.Type)
	set("TFOLD_SYMBOL", &c.Source.Symbol)
	set("TFOLD_CSV_PATH", &c.Source.CSV.Path)
	set("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	set("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	set("KAFKA_TOPIC", &c.Kafka.Topic)
	set("REDIS_ADDR", &c.Redis.Addr)
	set("REDIS_PASSWORD", &c.Redis.Password)

	c.Pipeline.Shift = util.ParseBoolDefault(getenv("TFOLD_SHIFT"), c.Pipeline.Shift)
	c.Pipeline.Workers = util.ParseIntDefault(getenv("TFOLD_WORKERS"), c.Pipeline.Workers)
	c.Server.Port = util.ParseIntDefault(getenv("HTTP_PORT"), c.Server.Port)

	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
	}
}

// Validate checks field rules and the requirements between sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Source.Type {
	case "csv":
		if c.Source.CSV.Path == "" {
			return fmt.Errorf("source.csv.path is required for the csv source")
		}
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("clickhouse.enabled must be true for the clickhouse source")
		}
		if c.Source.Symbol == "" {
			return fmt.Errorf("source.symbol is required for the clickhouse source")
		}
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if !c.Pipeline.AutoNames && len(c.Pipeline.ColNames) == 0 {
		return fmt.Errorf("pipeline.col_names is required when pipeline.auto_names is false")
	}
	return nil
}
