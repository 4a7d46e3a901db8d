package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"marketdash/config"
	"marketdash/internal/indengine"
	"marketdash/internal/indicator"
	"marketdash/internal/logger"
	"marketdash/internal/metrics"
	redisstore "marketdash/internal/store/redis"
	sqlitestore "marketdash/internal/store/sqlite"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	log := logger.Init("indengine", logger.ParseLevel(cfg.LogLevel))

	svcCfg, err := indengine.ConfigFrom(cfg, indicator.DefaultRegistry())
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewMetrics(reg)

	// ---- Open SQLite ----
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		log.Error("create data dir failed", "error", err)
		os.Exit(1)
	}
	bars, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Error("sqlite open failed", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer bars.Close()

	// ---- Connect to Redis (optional) ----
	var (
		cache *redisstore.Cache
		rdb   *goredis.Client
	)
	if cfg.CacheEnabled {
		cache, err = redisstore.New(redisstore.CacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			log.Warn("redis unavailable, serving uncached", "addr", cfg.RedisAddr, "error", err)
			cache = nil
		} else {
			defer cache.Close()
			rdb = cache.Client()
		}
	}

	health := metrics.NewHealthStatus(cfg.CacheEnabled)
	if cache != nil {
		cache.Breaker().OnStateChange = breakerObserver(log, prom, health)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	probeCtx, probeCancel := context.WithTimeout(ctx, 3*time.Second)
	health.CheckSQLite(probeCtx, bars.DB())
	if rdb != nil {
		health.CheckRedis(probeCtx, rdb)
	}
	probeCancel()
	health.StartLivenessChecker(ctx, rdb, bars.DB(), 10*time.Second)

	deps := indengine.Deps{
		Bars:    bars,
		Metrics: prom,
		Health:  health,
		Logger:  log,
	}
	if cache != nil {
		deps.Cache = cache
	}
	svc, err := indengine.New(svcCfg, deps)
	if err != nil {
		log.Error("service init failed", "error", err)
		os.Exit(1)
	}

	log.Info("indicator engine starting",
		"http_addr", svcCfg.HTTPAddr,
		"sqlite", cfg.SQLitePath,
		"cache", cache != nil,
		"workers", svcCfg.Workers,
		"indicators", len(indicator.IDs()),
	)
	if err := svc.Run(ctx); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// breakerObserver reports circuit breaker transitions: /healthz reads
// degraded while the breaker is open.
func breakerObserver(log *slog.Logger, prom *metrics.Metrics, health *metrics.HealthStatus) func(from, to redisstore.State) {
	return func(from, to redisstore.State) {
		log.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
		prom.SetBreakerState(int(to), to == redisstore.StateOpen)
		health.SetRedisConnected(to != redisstore.StateOpen)
	}
}
