package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"marketdash/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultTTL          = 10 * time.Minute
	defaultMaxFailures  = 5
	defaultResetTimeout = 10 * time.Second
)

// CacheConfig configures the Redis output cache.
type CacheConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration

	MaxFailures  int           // consecutive failures before the breaker opens
	ResetTimeout time.Duration // breaker open time before a probe
}

var _ model.OutputCache = (*Cache)(nil)

// Cache stores aligned indicator outputs in Redis as JSON with a TTL, under
// keys built by model.OutputKey.
// Every call goes through a circuit breaker so a dead Redis costs one
// fast ErrCircuitOpen instead of a network timeout per request.
type Cache struct {
	client *goredis.Client
	cb     *CircuitBreaker
	ttl    time.Duration
}

// New creates a Cache and pings the server.
func New(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, cfg CacheConfig) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	return &Cache{
		client: client,
		cb:     NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout),
		ttl:    cfg.TTL,
	}
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Breaker returns the cache's circuit breaker so callers can observe it.
func (c *Cache) Breaker() *CircuitBreaker { return c.cb }

func isMiss(err error) bool { return errors.Is(err, goredis.Nil) }

// GetOutput returns (nil, nil) on a miss.
func (c *Cache) GetOutput(ctx context.Context, key string) (*model.AlignedOutput, error) {
	var data []byte
	err := c.cb.Execute(func() error {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		return err
	}, isMiss)
	if isMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}

	var out model.AlignedOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode cached output %s: %w", key, err)
	}
	return &out, nil
}

// SetOutput stores out under key with the configured TTL.
func (c *Cache) SetOutput(ctx context.Context, key string, out *model.AlignedOutput) error {
	data := out.JSON()
	err := c.cb.Execute(func() error {
		return c.client.Set(ctx, key, data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// SetOutputs stores several outputs in a single pipeline round trip.
func (c *Cache) SetOutputs(ctx context.Context, outs map[string]*model.AlignedOutput) error {
	if len(outs) == 0 {
		return nil
	}
	err := c.cb.Execute(func() error {
		pipe := c.client.Pipeline()
		for key, out := range outs {
			pipe.Set(ctx, key, out.JSON(), c.ttl)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("redis pipeline SET (%d outputs): %w", len(outs), err)
	}
	return nil
}

// Ping checks connectivity through the breaker.
func (c *Cache) Ping(ctx context.Context) error {
	return c.cb.Execute(func() error { return c.client.Ping(ctx).Err() })
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
