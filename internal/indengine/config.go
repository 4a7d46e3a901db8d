package indengine

import (
	"fmt"
	"time"

	"marketdash/config"
	"marketdash/internal/indicator"
)

// Config holds the parsed service configuration.
type Config struct {
	HTTPAddr       string
	MaxBars        int           // cap on bars loaded per compute call
	Workers        int           // engine parallelism per batch
	RateLimitRPS   float64       // compute requests per second, all clients
	RateLimitBurst int
	WriteTimeout   time.Duration // per-message WebSocket write deadline

	// DefaultRequests is used when a compute call names no indicators.
	DefaultRequests []indicator.Request
}

// DefaultConfig returns the values config.Load falls back to.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:       ":9095",
		MaxBars:        5000,
		Workers:        4,
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		WriteTimeout:   10 * time.Second,
		DefaultRequests: []indicator.Request{
			{ID: indicator.SMA, Period: 20},
			{ID: indicator.EMA, Period: 9},
			{ID: indicator.RSI, Period: 14},
			{ID: indicator.Bollinger, Period: 20},
		},
	}
}

// ConfigFrom builds a service Config from process configuration, parsing the
// default indicator list against reg.
func ConfigFrom(c *config.Config, reg *indicator.Registry) (Config, error) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = c.HTTPAddr
	cfg.MaxBars = c.MaxBars
	cfg.Workers = c.Workers
	cfg.RateLimitRPS = c.RateLimitRPS
	cfg.RateLimitBurst = c.RateLimitBurst

	if c.DefaultIndicators != "" {
		reqs, err := indicator.ParseRequests(c.DefaultIndicators, reg)
		if err != nil {
			return Config{}, fmt.Errorf("DEFAULT_INDICATORS: %w", err)
		}
		for _, r := range reqs {
			if !r.ID.Valid() {
				return Config{}, fmt.Errorf("DEFAULT_INDICATORS: %w: %q", indicator.ErrUnknownIndicator, r.Name)
			}
		}
		cfg.DefaultRequests = reqs
	}
	return cfg, nil
}
