package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketdash/internal/indicator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("%w: x", indicator.ErrUnknownIndicator), "unknown_indicator"},
		{fmt.Errorf("%w: x", indicator.ErrMissingRequiredField), "missing_field"},
		{fmt.Errorf("%w: x", indicator.ErrInsufficientHistory), "insufficient_history"},
		{fmt.Errorf("%w: x", indicator.ErrInvalidParameter), "invalid_parameter"},
		{fmt.Errorf("%w: x", indicator.ErrInvalidSeries), "invalid_series"},
		{fmt.Errorf("%w: x", indicator.ErrAlignment), "alignment"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err))
	}
}

func TestObserveCompute(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveCompute("SMA", time.Millisecond, nil)
	m.ObserveCompute("SMA", time.Millisecond, nil)
	m.ObserveCompute("MFI", time.Millisecond, indicator.ErrInsufficientHistory)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ComputeTotal.WithLabelValues("SMA", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComputeTotal.WithLabelValues("MFI", "insufficient_history")))
}

func TestSetBreakerState(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetBreakerState(1, true)
	m.SetBreakerState(2, false)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RedisCircuitBreakerState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RedisCircuitBreakerTrips))
}

func TestHandler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.CacheHits.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "indengine_cache_hits_total 1"))
}

func TestHealthStatus(t *testing.T) {
	tests := []struct {
		name         string
		redisEnabled bool
		redisUp      bool
		sqliteOK     bool
		wantCode     int
		wantStatus   string
	}{
		{"all up", true, true, true, http.StatusOK, "healthy"},
		{"redis down", true, false, true, http.StatusOK, "degraded"},
		{"redis disabled", false, false, true, http.StatusOK, "healthy"},
		{"sqlite down", true, true, false, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthStatus(tt.redisEnabled)
			h.SetRedisConnected(tt.redisUp)
			h.SetSQLiteOK(tt.sqliteOK)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.wantCode, rec.Code)

			var body struct {
				Status string `json:"status"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
		})
	}
}
