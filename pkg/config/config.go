package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/peter-kozarec/flowdelta/pkg/datasource/synthetic"
	"github.com/peter-kozarec/flowdelta/pkg/simulation"
	"github.com/peter-kozarec/flowdelta/pkg/tools/classify"
	"github.com/peter-kozarec/flowdelta/pkg/utility/fixed"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "FLOWDELTA_"

const (
	SourceHistorical = "historical"
	SourceDuckDB     = "duckdb"
	SourceSynthetic  = "synthetic"

	StorageNone    = ""
	StorageDuckDB  = "duckdb"
	StorageParquet = "parquet"
)

type Config struct {
	Instrument string        `yaml:"instrument" env:"INSTRUMENT"`
	Dataset    string        `yaml:"dataset" env:"DATASET"`
	Start      time.Time     `yaml:"start" env:"START"`
	End        time.Time     `yaml:"end" env:"END"`
	BarWidth   time.Duration `yaml:"bar_width" env:"BAR_WIDTH"`
	Threshold  fixed.Point   `yaml:"threshold" env:"THRESHOLD"`
	Classifier string        `yaml:"classifier" env:"CLASSIFIER"`
	UseCached  bool          `yaml:"use_cached" env:"USE_CACHED"`

	InitialCapital fixed.Point `yaml:"initial_capital" env:"INITIAL_CAPITAL"`
	PositionSize   fixed.Point `yaml:"position_size" env:"POSITION_SIZE"`

	Source  SourceConfig  `yaml:"source" envPrefix:"SOURCE_"`
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Cache   CacheConfig   `yaml:"cache" envPrefix:"CACHE_"`
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
}

type SourceConfig struct {
	Kind      string          `yaml:"kind" env:"KIND"`
	Path      string          `yaml:"path" env:"PATH"`
	Relation  string          `yaml:"relation" env:"RELATION"`
	Seed      int64           `yaml:"seed" env:"SEED"`
	Synthetic SyntheticConfig `yaml:"synthetic" envPrefix:"SYNTHETIC_"`
}

// SyntheticConfig tunes the generated random walk. Zero values keep the
// generator defaults.
type SyntheticConfig struct {
	StartPrice   fixed.Point   `yaml:"start_price" env:"START_PRICE"`
	TickSize     fixed.Point   `yaml:"tick_size" env:"TICK_SIZE"`
	TickInterval time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	MinSize      int64         `yaml:"min_size" env:"MIN_SIZE"`
	MaxSize      int64         `yaml:"max_size" env:"MAX_SIZE"`
}

func (s SyntheticConfig) Options() []synthetic.Option {
	var options []synthetic.Option
	if !s.StartPrice.IsZero() {
		options = append(options, synthetic.WithStartPrice(s.StartPrice))
	}
	if !s.TickSize.IsZero() {
		options = append(options, synthetic.WithTickSize(s.TickSize))
	}
	if s.TickInterval != 0 {
		options = append(options, synthetic.WithTickInterval(s.TickInterval))
	}
	if s.MinSize != 0 || s.MaxSize != 0 {
		options = append(options, synthetic.WithSizeRange(s.MinSize, s.MaxSize))
	}
	return options
}

type StorageConfig struct {
	Kind string `yaml:"kind" env:"KIND"`
	Path string `yaml:"path" env:"PATH"`
}

type CacheConfig struct {
	RedisURL      string        `yaml:"redis_url" env:"REDIS_URL"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	TTL           time.Duration `yaml:"ttl" env:"TTL"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" env:"LEVEL"`
	Development bool   `yaml:"development" env:"DEVELOPMENT"`
	File        string `yaml:"file" env:"FILE"`
	MaxSizeMB   int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups  int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays  int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
}

type MetricsConfig struct {
	TextFile string `yaml:"textfile" env:"TEXTFILE"`
}

func Default() Config {
	sim := simulation.DefaultConfiguration()
	return Config{
		BarWidth:       time.Minute,
		Threshold:      fixed.FromInt(500, 0),
		Classifier:     classify.Aggressor,
		InitialCapital: sim.InitialCapital,
		PositionSize:   sim.PositionSizeFraction,
		Source: SourceConfig{
			Kind: SourceHistorical,
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the YAML file at path (skipped when empty), then applies
// FLOWDELTA_ prefixed environment variables, including those from the given
// .env files, and validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c Config) Simulation() simulation.Configuration {
	return simulation.Configuration{
		InitialCapital:       c.InitialCapital,
		PositionSizeFraction: c.PositionSize,
	}
}

func (c Config) Request() simulation.Request {
	return simulation.Request{
		Instrument: c.Instrument,
		Dataset:    c.Dataset,
		From:       c.Start,
		To:         c.End,
		BarWidth:   c.BarWidth,
		Threshold:  c.Threshold,
		Simulation: c.Simulation(),
		UseCached:  c.UseCached,
	}
}

func (c Config) Validate() error {
	if err := c.Request().Validate(); err != nil {
		return err
	}
	if !c.End.After(c.Start) {
		return common.NewParameterError("end", c.End.Format(time.RFC3339), "must be after start")
	}
	if _, err := classify.New(c.Classifier); err != nil {
		return err
	}

	switch c.Source.Kind {
	case SourceHistorical, SourceDuckDB:
		if c.Source.Path == "" {
			return common.NewParameterError("source.path", c.Source.Path, "required for source "+c.Source.Kind)
		}
	case SourceSynthetic:
		if _, err := synthetic.NewTickGenerator(c.Source.Seed, c.Source.Synthetic.Options()...); err != nil {
			return fmt.Errorf("invalid synthetic source: %w", err)
		}
	default:
		return common.NewParameterError("source.kind", c.Source.Kind, "expected historical, duckdb or synthetic")
	}

	switch c.Storage.Kind {
	case StorageNone:
	case StorageDuckDB, StorageParquet:
		if c.Storage.Path == "" {
			return common.NewParameterError("storage.path", c.Storage.Path, "required for storage "+c.Storage.Kind)
		}
	default:
		return common.NewParameterError("storage.kind", c.Storage.Kind, "expected duckdb or parquet")
	}

	if c.Cache.RedisURL != "" && c.Cache.TTL < 0 {
		return common.NewParameterError("cache.ttl", c.Cache.TTL, "must not be negative")
	}

	return nil
}

func (c Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("instrument", c.Instrument),
		zap.String("dataset", c.Dataset),
		zap.Time("start", c.Start),
		zap.Time("end", c.End),
		zap.Duration("bar_width", c.BarWidth),
		zap.String("threshold", c.Threshold.String()),
		zap.String("classifier", c.Classifier),
		zap.String("initial_capital", c.InitialCapital.String()),
		zap.String("position_size", c.PositionSize.String()),
		zap.String("source", c.Source.Kind),
		zap.String("storage", c.Storage.Kind),
		zap.Bool("use_cached", c.UseCached),
	}
}
