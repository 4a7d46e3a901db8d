package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"marketdash/internal/indicator"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indicator service.
type Metrics struct {
	// Indicator engine
	ComputeDur   *prometheus.HistogramVec // labels: indicator
	ComputeTotal *prometheus.CounterVec   // labels: indicator, outcome
	BatchDur     prometheus.Histogram
	BarsLoaded   prometheus.Histogram

	// Output cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheErrors prometheus.Counter

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// HTTP / WebSocket surface
	HTTPRequests *prometheus.CounterVec // labels: route, code
	RateLimited  prometheus.Counter
	WSClients    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers all metrics with reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration on the default registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "indengine_compute_duration_seconds",
			Help:    "Indicator compute latency per request",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"indicator"}),
		ComputeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indengine_compute_total",
			Help: "Indicator computations by outcome",
		}, []string{"indicator", "outcome"}),
		BatchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indengine_batch_duration_seconds",
			Help:    "End-to-end latency of a compute call (load, cache, compute)",
			Buckets: prometheus.DefBuckets,
		}),
		BarsLoaded: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indengine_bars_loaded",
			Help:    "Bars loaded per compute call",
			Buckets: prometheus.ExponentialBuckets(10, 4, 7),
		}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indengine_cache_hits_total",
			Help: "Aligned outputs served from Redis",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indengine_cache_misses_total",
			Help: "Aligned outputs not found in Redis",
		}),
		CacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indengine_cache_errors_total",
			Help: "Redis cache reads or writes that failed",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indengine_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indengine_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indengine_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indengine_rate_limited_total",
			Help: "Compute requests rejected by the rate limiter",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indengine_ws_clients",
			Help: "Connected WebSocket clients",
		}),

		gatherer: reg,
	}

	reg.MustRegister(
		m.ComputeDur,
		m.ComputeTotal,
		m.BatchDur,
		m.BarsLoaded,
		m.CacheHits,
		m.CacheMisses,
		m.CacheErrors,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.HTTPRequests,
		m.RateLimited,
		m.WSClients,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveCompute implements indicator.Recorder.
func (m *Metrics) ObserveCompute(id string, d time.Duration, err error) {
	m.ComputeDur.WithLabelValues(id).Observe(d.Seconds())
	m.ComputeTotal.WithLabelValues(id, Outcome(err)).Inc()
}

// Outcome classifies a compute error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, indicator.ErrUnknownIndicator):
		return "unknown_indicator"
	case errors.Is(err, indicator.ErrMissingRequiredField):
		return "missing_field"
	case errors.Is(err, indicator.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, indicator.ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, indicator.ErrInvalidSeries):
		return "invalid_series"
	case errors.Is(err, indicator.ErrAlignment):
		return "alignment"
	default:
		return "error"
	}
}

// SetBreakerState records a circuit breaker transition; a move to open
// counts as a trip.
func (m *Metrics) SetBreakerState(state int, tripped bool) {
	m.RedisCircuitBreakerState.Set(float64(state))
	if tripped {
		m.RedisCircuitBreakerTrips.Inc()
	}
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool `json:"redis_enabled"`
	RedisConnected bool `json:"redis_connected"`
	SQLiteOK       bool `json:"sqlite_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus(redisEnabled bool) *HealthStatus {
	return &HealthStatus{
		RedisEnabled: redisEnabled,
		StartedAt:    time.Now(),
	}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Either handle may
// be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint. SQLite is required; Redis only
// degrades the service because computation falls back to uncached.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if h.RedisEnabled && !h.RedisConnected {
		overallStatus = "degraded"
	}
	if !h.SQLiteOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}
