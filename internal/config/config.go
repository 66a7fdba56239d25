// Package config loads the engine configuration: YAML file first, then
// environment overrides. Secrets (the data API key) are only ever taken from
// the environment, never from the file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/quantfx/fxengine/internal/analysis"
	"github.com/quantfx/fxengine/internal/api"
	"github.com/quantfx/fxengine/internal/provider/cache"
	"github.com/quantfx/fxengine/internal/provider/twelvedata"
	"github.com/quantfx/fxengine/internal/scanner"
)

// Environment variable overrides.
const (
	EnvAPIKey    = "TWELVEDATA_API_KEY"
	EnvRedisAddr = "REDIS_ADDR"
	EnvHTTPPort  = "HTTP_PORT"
	EnvLogLevel  = "FXENGINE_LOG_LEVEL"
)

// ProviderSource selects where market data comes from.
type ProviderSource string

const (
	SourceTwelveData ProviderSource = "twelvedata"
	SourceSynthetic  ProviderSource = "synthetic"
)

// ProviderConfig selects and configures the market-data source.
type ProviderConfig struct {
	Source     ProviderSource    `yaml:"source"`
	TwelveData twelvedata.Config `yaml:"twelvedata"`
	Synthetic  SyntheticConfig   `yaml:"synthetic"`
}

// SyntheticConfig seeds the offline data generator.
type SyntheticConfig struct {
	Seed  int64   `yaml:"seed"`
	Drift float64 `yaml:"drift"`
	Vol   float64 `yaml:"vol"`
}

// RedisConfig configures the optional series cache.
type RedisConfig struct {
	Enabled  bool         `yaml:"enabled"`
	Addr     string       `yaml:"addr"`
	Password string       `yaml:"password"`
	DB       int          `yaml:"db"`
	Cache    cache.Config `yaml:"cache"`
}

// Config is the full engine configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Provider ProviderConfig  `yaml:"provider"`
	Redis    RedisConfig     `yaml:"redis"`
	HTTP     api.Config      `yaml:"http"`
	Analysis analysis.Config `yaml:"analysis"`
	Scanner  scanner.Config  `yaml:"scanner"`
}

// Default returns the full default configuration. With no API key the engine
// runs on synthetic data.
func Default() Config {
	return Config{
		LogLevel: "info",
		Provider: ProviderConfig{
			Source:     SourceSynthetic,
			TwelveData: twelvedata.DefaultConfig(""),
			Synthetic:  SyntheticConfig{Seed: 42, Drift: 0, Vol: 0.0008},
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			Cache:   cache.DefaultConfig(),
		},
		HTTP:     api.DefaultConfig(),
		Analysis: analysis.DefaultConfig(),
		Scanner:  scanner.DefaultConfig(),
	}
}

// Load reads path (optional), applies environment overrides and validates.
// A missing .env file is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.Provider.TwelveData.APIKey = key
		cfg.Provider.Source = SourceTwelveData
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if port := os.Getenv(EnvHTTPPort); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.HTTP.Port = parsed
		} else {
			log.Warn().Str("value", port).Msg("ignoring invalid HTTP_PORT")
		}
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.LogLevel = level
	}
}

// Validate checks the combined configuration.
func (c Config) Validate() error {
	switch c.Provider.Source {
	case SourceTwelveData:
		if err := c.Provider.TwelveData.Validate(); err != nil {
			return fmt.Errorf("twelvedata: %w", err)
		}
	case SourceSynthetic:
	default:
		return fmt.Errorf("unknown provider source %q", c.Provider.Source)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis enabled but no addr configured")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port %d out of range", c.HTTP.Port)
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := c.Scanner.Validate(); err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	return nil
}
