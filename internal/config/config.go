package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Decision/internal/scoring"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Cache    CacheConfig    `yaml:"cache"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Runs     RunsConfig     `yaml:"runs"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port               int    `yaml:"port" validate:"min=1,max=65535"`
	MetricsPort        int    `yaml:"metrics_port" validate:"min=1,max=65535,nefield=Port"`
	AdminToken         string `yaml:"admin_token"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" validate:"min=0"`
}

type DatabaseConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

type HermesConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

type CacheConfig struct {
	URL        string `yaml:"url" validate:"omitempty,url"`
	TTLSeconds int    `yaml:"ttl_seconds" validate:"min=1"`
}

// AnalysisConfig holds caller-side defaults applied when a request omits
// its own options.
type AnalysisConfig struct {
	ConcordanceThreshold float64 `yaml:"concordance_threshold" validate:"min=0,max=1"`
	DiscordanceThreshold float64 `yaml:"discordance_threshold" validate:"min=0,max=1"`
	SampleCount          int     `yaml:"sample_count" validate:"min=2,max=1000"`
}

type RunsConfig struct {
	TickIntervalMs int `yaml:"tick_interval_ms" validate:"min=10"`
	BatchSize      int `yaml:"batch_size" validate:"min=1"`
	StaleAfterMs   int `yaml:"stale_after_ms" validate:"min=1000"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Runs.TickIntervalMs) * time.Millisecond
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Runs.StaleAfterMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Options returns the default analysis options.
func (c *Config) Options() scoring.Options {
	return scoring.Options{
		ConcordanceThreshold: c.Analysis.ConcordanceThreshold,
		DiscordanceThreshold: c.Analysis.DiscordanceThreshold,
	}
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8700,
			MetricsPort:        8701,
			RateLimitPerMinute: 120,
		},
		Cache: CacheConfig{
			TTLSeconds: 3600,
		},
		Analysis: AnalysisConfig{
			ConcordanceThreshold: scoring.DefaultConcordanceThreshold,
			DiscordanceThreshold: scoring.DefaultDiscordanceThreshold,
			SampleCount:          scoring.DefaultSampleCount,
		},
		Runs: RunsConfig{
			TickIntervalMs: 2000,
			BatchSize:      10,
			StaleAfterMs:   300000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field ranges and formats after defaults, file and env have
// been applied.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func applyEnv(cfg *Config) {
	envInt("DECISION_PORT", &cfg.Server.Port)
	envInt("DECISION_METRICS_PORT", &cfg.Server.MetricsPort)
	envString("DECISION_ADMIN_TOKEN", &cfg.Server.AdminToken)
	envInt("DECISION_RATE_LIMIT_PER_MINUTE", &cfg.Server.RateLimitPerMinute)
	envString("DECISION_DATABASE_URL", &cfg.Database.URL)
	envString("DECISION_HERMES_URL", &cfg.Hermes.URL)
	envString("DECISION_CACHE_URL", &cfg.Cache.URL)
	envInt("DECISION_CACHE_TTL_SECONDS", &cfg.Cache.TTLSeconds)
	envFloat("DECISION_CONCORDANCE_THRESHOLD", &cfg.Analysis.ConcordanceThreshold)
	envFloat("DECISION_DISCORDANCE_THRESHOLD", &cfg.Analysis.DiscordanceThreshold)
	envInt("DECISION_SAMPLE_COUNT", &cfg.Analysis.SampleCount)
	envInt("DECISION_TICK_INTERVAL_MS", &cfg.Runs.TickIntervalMs)
	envInt("DECISION_BATCH_SIZE", &cfg.Runs.BatchSize)
	envInt("DECISION_STALE_AFTER_MS", &cfg.Runs.StaleAfterMs)
	envString("DECISION_LOG_LEVEL", &cfg.Logging.Level)
	envString("DECISION_LOG_FORMAT", &cfg.Logging.Format)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
