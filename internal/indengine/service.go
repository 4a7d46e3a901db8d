package indengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"marketdash/internal/indicator"
	"marketdash/internal/logger"
	"marketdash/internal/metrics"
	"marketdash/internal/model"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// ErrBadRequest marks malformed compute calls (missing symbol, bad JSON,
// unparseable query values).
var ErrBadRequest = errors.New("bad request")

// Deps are the collaborators a Service is wired with. Only Bars is required.
type Deps struct {
	Bars    model.BarReader
	Cache   model.OutputCache // nil disables output caching
	Metrics *metrics.Metrics
	Health  *metrics.HealthStatus
	Logger  *slog.Logger
}

// Service computes aligned indicator outputs for stored bar series. Each
// request key is looked up in the output cache under the series fingerprint
// before the engine runs; only misses are computed.
type Service struct {
	cfg     Config
	engine  *indicator.Engine
	bars    model.BarReader
	cache   model.OutputCache
	prom    *metrics.Metrics
	health  *metrics.HealthStatus
	limiter *rate.Limiter
	log     *slog.Logger

	upgrader websocket.Upgrader
}

// New creates a Service from cfg and deps.
func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Bars == nil {
		return nil, errors.New("indengine: bar reader is required")
	}
	def := DefaultConfig()
	if cfg.MaxBars <= 0 {
		cfg.MaxBars = def.MaxBars
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		cfg.RateLimitRPS, cfg.RateLimitBurst = def.RateLimitRPS, def.RateLimitBurst
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if len(cfg.DefaultRequests) == 0 {
		cfg.DefaultRequests = def.DefaultRequests
	}

	svc := &Service{
		cfg:     cfg,
		bars:    deps.Bars,
		cache:   deps.Cache,
		prom:    deps.Metrics,
		health:  deps.Health,
		log:     deps.Logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if svc.log == nil {
		svc.log = slog.Default()
	}
	if svc.prom == nil {
		svc.prom = metrics.NewMetrics(prometheus.NewRegistry())
	}
	if svc.health == nil {
		svc.health = metrics.NewHealthStatus(svc.cache != nil)
		svc.health.SetSQLiteOK(true)
		svc.health.SetRedisConnected(svc.cache != nil)
	}
	svc.engine = indicator.NewEngine(
		indicator.WithWorkers(cfg.Workers),
		indicator.WithLogger(svc.log),
		indicator.WithRecorder(svc.prom),
	)
	return svc, nil
}

// Engine returns the underlying indicator engine.
func (svc *Service) Engine() *indicator.Engine { return svc.engine }

// ComputeRequest selects a bar window and the indicators to evaluate on it.
// Indicators and Spec are alternatives; when both are empty the configured
// defaults apply.
type ComputeRequest struct {
	Symbol     string              `json:"symbol"`
	Interval   string              `json:"interval"`
	From       time.Time           `json:"from"`
	To         time.Time           `json:"to"`
	Limit      int                 `json:"limit,omitempty"`
	Indicators []indicator.Request `json:"indicators,omitempty"`
	Spec       string              `json:"spec,omitempty"` // e.g. "SMA:20,MACD:12:26:9"
}

// ResultView is one keyed result as served to clients.
type ResultView struct {
	Key     string               `json:"key"`
	Request indicator.Request    `json:"request"`
	Output  *model.AlignedOutput `json:"output,omitempty"`
	Cached  bool                 `json:"cached,omitempty"`
	Error   string               `json:"error,omitempty"`
	Code    string               `json:"code,omitempty"`

	err error
}

// Err returns the request's failure, if any.
func (v ResultView) Err() error { return v.err }

// ComputeResponse carries every keyed result of one compute call.
type ComputeResponse struct {
	Symbol      string                `json:"symbol"`
	Interval    string                `json:"interval"`
	Bars        int                   `json:"bars"`
	Fingerprint string                `json:"fingerprint"`
	Results     map[string]ResultView `json:"results"`
}

// Compute loads the requested bar window and evaluates every indicator on
// it. Per-indicator failures are reported in the result; the returned error
// is reserved for failures of the whole call (bad request, storage error,
// invalid series).
func (svc *Service) Compute(ctx context.Context, req ComputeRequest) (*ComputeResponse, error) {
	start := time.Now()
	defer func() { svc.prom.BatchDur.Observe(time.Since(start).Seconds()) }()

	if req.Symbol == "" || req.Interval == "" {
		return nil, fmt.Errorf("%w: symbol and interval are required", ErrBadRequest)
	}
	reqs, err := svc.requests(req)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 || limit > svc.cfg.MaxBars {
		limit = svc.cfg.MaxBars
	}
	series, err := svc.bars.ReadBars(ctx, req.Symbol, req.Interval, req.From, req.To, limit)
	if err != nil {
		return nil, fmt.Errorf("load bars %s:%s: %w", req.Symbol, req.Interval, err)
	}
	svc.prom.BarsLoaded.Observe(float64(series.Len()))
	if err := indicator.ValidateSeries(series); err != nil {
		return nil, err
	}

	fp := series.Fingerprint()
	resp := &ComputeResponse{
		Symbol:      series.Symbol,
		Interval:    series.Interval,
		Bars:        series.Len(),
		Fingerprint: fp,
		Results:     make(map[string]ResultView, len(reqs)),
	}

	var misses []indicator.Request
	looked := make(map[string]bool, len(reqs))
	for i, r := range reqs {
		_, _, key, err := svc.engine.Plan(r)
		if err != nil {
			key = indicator.FailedKey(key, i)
			resp.Results[key] = ResultView{Key: key, Request: r, Error: err.Error(), Code: metrics.Outcome(err), err: err}
			continue
		}
		if svc.cache == nil {
			misses = append(misses, r)
			continue
		}
		if looked[key] {
			continue
		}
		looked[key] = true
		if out, ok := svc.cached(ctx, fp, key); ok {
			resp.Results[key] = ResultView{Key: key, Request: r, Output: out, Cached: true}
			continue
		}
		misses = append(misses, r)
	}
	if len(misses) == 0 {
		return resp, nil
	}

	results, err := svc.engine.Compute(series, misses)
	if err != nil {
		return nil, err
	}
	fresh := make(map[string]*model.AlignedOutput, len(results))
	for key, res := range results {
		view := ResultView{Key: key, Request: res.Request, Output: res.Output, err: res.Err}
		if res.Err != nil {
			view.Error = res.Err.Error()
			view.Code = metrics.Outcome(res.Err)
		} else {
			fresh[model.OutputKey(fp, key)] = res.Output
		}
		resp.Results[key] = view
	}
	if svc.cache != nil {
		svc.store(ctx, fresh)
	}

	svc.log.Debug("compute done", append(logger.Attrs(ctx),
		"series", series.Key(), "bars", series.Len(),
		"results", len(resp.Results), "computed", len(results),
		"duration", time.Since(start))...)
	return resp, nil
}

// ComputeOne evaluates a single indicator and returns its output, or its
// per-request error as the call's error.
func (svc *Service) ComputeOne(ctx context.Context, req ComputeRequest, r indicator.Request) (ResultView, error) {
	req.Indicators = []indicator.Request{r}
	req.Spec = ""
	resp, err := svc.Compute(ctx, req)
	if err != nil {
		return ResultView{}, err
	}
	for _, v := range resp.Results {
		return v, v.err
	}
	return ResultView{}, errors.New("indengine: empty compute result")
}

// Indicators lists every registered descriptor.
func (svc *Service) Indicators() []indicator.Descriptor {
	return svc.engine.Registry().All()
}

// Series lists stored series when the bar reader can enumerate them.
func (svc *Service) Series(ctx context.Context) ([]model.SeriesInfo, error) {
	lister, ok := svc.bars.(model.SeriesLister)
	if !ok {
		return nil, nil
	}
	return lister.ListSeries(ctx)
}

func (svc *Service) requests(req ComputeRequest) ([]indicator.Request, error) {
	switch {
	case len(req.Indicators) > 0 && req.Spec != "":
		return nil, fmt.Errorf("%w: indicators and spec are mutually exclusive", ErrBadRequest)
	case len(req.Indicators) > 0:
		return req.Indicators, nil
	case req.Spec != "":
		return indicator.ParseRequests(req.Spec, svc.engine.Registry())
	}
	return svc.cfg.DefaultRequests, nil
}

func (svc *Service) cached(ctx context.Context, fp, key string) (*model.AlignedOutput, bool) {
	out, err := svc.cache.GetOutput(ctx, model.OutputKey(fp, key))
	switch {
	case err != nil:
		svc.prom.CacheErrors.Inc()
		svc.log.Warn("output cache read failed", append(logger.Attrs(ctx), "key", key, "error", err)...)
		return nil, false
	case out == nil:
		svc.prom.CacheMisses.Inc()
		return nil, false
	}
	svc.prom.CacheHits.Inc()
	return out, true
}

func (svc *Service) store(ctx context.Context, outs map[string]*model.AlignedOutput) {
	if len(outs) == 0 {
		return
	}
	if err := svc.cache.SetOutputs(ctx, outs); err != nil {
		svc.prom.CacheErrors.Inc()
		svc.log.Warn("output cache write failed", append(logger.Attrs(ctx), "outputs", len(outs), "error", err)...)
	}
}

// Run serves HTTP on cfg.HTTPAddr until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              svc.cfg.HTTPAddr,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		svc.log.Info("http server listening", "addr", svc.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	svc.log.Info("shutdown signal received, draining http server")
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	svc.log.Info("shutdown complete")
	return nil
}
