package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable, e.g. INDENGINE_HTTP_ADDR.
const Prefix = "INDENGINE"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// HTTP surface
	HTTPAddr       string  `envconfig:"HTTP_ADDR" default:":9095"`
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"40"`

	// Bar store
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/bars.db"`

	// Output cache
	CacheEnabled  bool          `envconfig:"CACHE_ENABLED" default:"true"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`

	// Engine
	Workers           int    `envconfig:"WORKERS" default:"4"`
	MaxBars           int    `envconfig:"MAX_BARS" default:"5000"`
	DefaultIndicators string `envconfig:"DEFAULT_INDICATORS" default:"SMA:20,EMA:9,RSI:14,BOLLINGER:20"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file and then the INDENGINE_* environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Workers <= 0:
		return fmt.Errorf("config: WORKERS must be positive, got %d", c.Workers)
	case c.MaxBars <= 0:
		return fmt.Errorf("config: MAX_BARS must be positive, got %d", c.MaxBars)
	case c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0:
		return fmt.Errorf("config: rate limit must be positive, got %g rps burst %d", c.RateLimitRPS, c.RateLimitBurst)
	case c.CacheEnabled && c.CacheTTL <= 0:
		return fmt.Errorf("config: CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	return nil
}
