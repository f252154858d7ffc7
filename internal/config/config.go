// Package config handles configuration loading and validation for qoq
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vegasq/qoq/output"
	"github.com/vegasq/qoq/query"
)

// EnvPrefix prefixes every environment override, e.g. QOQ_ENGINE_WORKERS
const EnvPrefix = "QOQ"

// Config holds all configuration for qoq
type Config struct {
	Engine EngineConfig      `mapstructure:"engine"`
	Log    LogConfig         `mapstructure:"log"`
	Output OutputConfig      `mapstructure:"output"`
	Tables map[string]string `mapstructure:"tables"`
}

// EngineConfig tunes statement execution
type EngineConfig struct {
	ParallelThreshold int64 `mapstructure:"parallel_threshold"`
	Workers           int   `mapstructure:"workers"`
	BatchSize         int   `mapstructure:"batch_size"`
	PatternCacheSize  int   `mapstructure:"pattern_cache_size"`
	MaxRows           int   `mapstructure:"max_rows"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// OutputConfig selects how results are rendered
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			ParallelThreshold: query.DefaultParallelThreshold,
			Workers:           0, // GOMAXPROCS
			BatchSize:         query.DefaultBatchSize,
			PatternCacheSize:  query.DefaultPatternCacheSize,
			MaxRows:           0, // unlimited
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
		Output: OutputConfig{
			Format: output.FormatTable,
		},
	}
}

// Load reads configuration from defaults, an optional file and QOQ_*
// environment variables, in increasing priority. With an empty path, qoq.yaml
// is looked up in the working directory and $HOME/.qoq; a missing file is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	cfg := Default()
	v.SetDefault("engine.parallel_threshold", cfg.Engine.ParallelThreshold)
	v.SetDefault("engine.workers", cfg.Engine.Workers)
	v.SetDefault("engine.batch_size", cfg.Engine.BatchSize)
	v.SetDefault("engine.pattern_cache_size", cfg.Engine.PatternCacheSize)
	v.SetDefault("engine.max_rows", cfg.Engine.MaxRows)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.output", cfg.Log.Output)
	v.SetDefault("output.format", cfg.Output.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("qoq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".qoq"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configuration values are sensible
func (c *Config) Validate() error {
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative: %d", c.Engine.Workers)
	}
	if c.Engine.BatchSize < 1 {
		return fmt.Errorf("engine.batch_size must be at least 1: %d", c.Engine.BatchSize)
	}
	if c.Engine.PatternCacheSize < 1 {
		return fmt.Errorf("engine.pattern_cache_size must be at least 1: %d", c.Engine.PatternCacheSize)
	}
	if c.Engine.MaxRows < 0 {
		return fmt.Errorf("engine.max_rows must not be negative: %d", c.Engine.MaxRows)
	}

	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	if !slices.Contains(output.Formats, strings.ToLower(c.Output.Format)) {
		return fmt.Errorf("invalid output format: %s", c.Output.Format)
	}
	return nil
}

// EngineOptions turns the engine section into query.Engine options
func (c *Config) EngineOptions(log *zap.Logger) []query.Option {
	return []query.Option{
		query.WithLogger(log),
		query.WithParallelThreshold(c.Engine.ParallelThreshold),
		query.WithWorkers(c.Engine.Workers),
		query.WithBatchSize(c.Engine.BatchSize),
		query.WithPatternCacheSize(c.Engine.PatternCacheSize),
	}
}
