package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
}

// StoreConfig configures the city metrics store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScoringConfig tunes the scoring engine. None of it changes scores except
// FallbackSpread, which only applies to metrics with fewer than two data
// points.
type ScoringConfig struct {
	FallbackSpread    float64 `yaml:"fallback_spread" mapstructure:"fallback_spread"`
	Parallelism       int     `yaml:"parallelism" mapstructure:"parallelism"`
	ParallelThreshold int     `yaml:"parallel_threshold" mapstructure:"parallel_threshold"`
}

// defaults seeds every key so METRO_* variables bind even without a file.
var defaults = map[string]any{
	"store.driver":               "sqlite",
	"store.database_url":         "metroscore.db",
	"store.max_conns":            10,
	"store.min_conns":            2,
	"log.level":                  "info",
	"log.format":                 "json",
	"server.port":                8080,
	"server.rate_limit":          20,
	"server.rate_burst":          40,
	"server.allowed_origins":     []string{"*"},
	"scoring.fallback_spread":    1.0,
	"scoring.parallelism":        4,
	"scoring.parallel_threshold": 500,
}

// Load merges defaults, ./config.yaml when present, and METRO_* environment
// variables, later sources winning.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetConfigFile("config.yaml")
	v.SetEnvPrefix("METRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !missingFile(err) {
		return nil, eris.Wrap(err, "config: read file")
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "config: decode")
	}
	return cfg, nil
}

func missingFile(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

// Validate checks the settings a command needs. mode is one of "rank",
// "import", or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "rank", "import", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if c.Scoring.FallbackSpread <= 0 {
		errs = append(errs, "scoring.fallback_spread must be > 0")
	}
	if c.Scoring.Parallelism < 1 || c.Scoring.Parallelism > 64 {
		errs = append(errs, "scoring.parallelism must be between 1 and 64")
	}
	if c.Scoring.ParallelThreshold < 0 {
		errs = append(errs, "scoring.parallel_threshold must be >= 0")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_burst must be >= 1 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger replaces the global zap logger. Format "console" selects the
// human-readable development encoder; anything else logs JSON.
func InitLogger(cfg LogConfig) error {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	logger, err := zc.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
