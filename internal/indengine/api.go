package indengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"marketdash/internal/indicator"
	"marketdash/internal/logger"
	"marketdash/internal/metrics"
	"marketdash/internal/model"
)

const maxBodyBytes = 1 << 20

// Handler returns the service's HTTP routes wrapped in request-ID and
// instrumentation middleware.
func (svc *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/indicators", svc.handleList)
	mux.HandleFunc("GET /api/indicators/{id}", svc.handleDescribe)
	mux.Handle("GET /api/indicators/{id}/values", svc.limit(http.HandlerFunc(svc.handleValues)))
	mux.Handle("POST /api/indicators/compute", svc.limit(http.HandlerFunc(svc.handleCompute)))
	mux.HandleFunc("GET /api/series", svc.handleSeries)
	mux.HandleFunc("GET /ws", svc.handleWS)
	mux.Handle("GET /healthz", svc.health)
	mux.Handle("GET /metrics", svc.prom.Handler())
	return svc.instrument(mux)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (svc *Service) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logger.NewRequestID()
		}
		r = r.WithContext(logger.WithRequestID(r.Context(), id))
		w.Header().Set("X-Request-ID", id)

		// /ws hijacks the connection, so it gets the raw writer.
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		svc.prom.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}

func (svc *Service) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !svc.limiter.Allow() {
			svc.prom.RateLimited.Inc()
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", Code: "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (svc *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		svc.log.Error("request failed", append(logger.Attrs(r.Context()), "path", r.URL.Path, "error", err)...)
	}
	writeJSON(w, code, errorBody{Error: err.Error(), Code: errorCode(err)})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, indicator.ErrInvalidSeries):
		return http.StatusBadRequest
	case errors.Is(err, indicator.ErrUnknownIndicator):
		return http.StatusNotFound
	case errors.Is(err, indicator.ErrMissingRequiredField),
		errors.Is(err, indicator.ErrInsufficientHistory),
		errors.Is(err, indicator.ErrInvalidParameter):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	if errors.Is(err, ErrBadRequest) {
		return "bad_request"
	}
	return metrics.Outcome(err)
}

func (svc *Service) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, svc.Indicators())
}

func (svc *Service) handleDescribe(w http.ResponseWriter, r *http.Request) {
	d, err := svc.engine.Registry().Lookup(r.PathValue("id"))
	if err != nil {
		svc.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (svc *Service) handleSeries(w http.ResponseWriter, r *http.Request) {
	list, err := svc.Series(r.Context())
	if err != nil {
		svc.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.SeriesInfo{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (svc *Service) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		svc.writeError(w, r, fmt.Errorf("%w: invalid JSON: %v", ErrBadRequest, err))
		return
	}
	resp, err := svc.Compute(r.Context(), req)
	if err != nil {
		svc.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleValues computes one indicator from query parameters:
//
//	GET /api/indicators/RSI/values?symbol=NIFTY&interval=1m&period=14&limit=500
func (svc *Service) handleValues(w http.ResponseWriter, r *http.Request) {
	d, err := svc.engine.Registry().Lookup(r.PathValue("id"))
	if err != nil {
		svc.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	req := ComputeRequest{Symbol: q.Get("symbol"), Interval: q.Get("interval")}
	ind := indicator.Request{ID: d.ID}

	var p queryParser
	req.From = p.timestamp(q.Get("from"), "from")
	req.To = p.timestamp(q.Get("to"), "to")
	req.Limit = p.integer(q.Get("limit"), "limit")
	ind.Period = p.integer(q.Get("period"), "period")
	ind.FastPeriod = p.integer(q.Get("fast"), "fast")
	ind.SlowPeriod = p.integer(q.Get("slow"), "slow")
	ind.SignalPeriod = p.integer(q.Get("signal"), "signal")
	ind.StdDevMultiplier = p.number(q.Get("multiplier"), "multiplier")
	ind.Factor = p.number(q.Get("factor"), "factor")
	if p.err != nil {
		svc.writeError(w, r, p.err)
		return
	}

	view, err := svc.ComputeOne(r.Context(), req, ind)
	if err != nil {
		svc.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// queryParser keeps the first parse error so handlers can check once.
type queryParser struct{ err error }

func (p *queryParser) fail(name, s string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q: %v", ErrBadRequest, name, s, err)
	}
}

func (p *queryParser) integer(s, name string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.fail(name, s, err)
	}
	return v
}

func (p *queryParser) number(s, name string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(name, s, err)
	}
	return v
}

func (p *queryParser) timestamp(s, name string) time.Time {
	if s == "" {
		return time.Time{}
	}
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		p.fail(name, s, err)
	}
	return v
}
