package indicator

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"marketdash/internal/model"

	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Recorder observes individual computations. metrics.Metrics implements it.
type Recorder interface {
	ObserveCompute(id string, d time.Duration, err error)
}

// Result is the outcome of one request in a batch.
type Result struct {
	Key     string               `json:"key"`
	Request Request              `json:"request"`
	Output  *model.AlignedOutput `json:"output,omitempty"`
	Err     error                `json:"-"`
}

// Engine evaluates batches of indicator requests over a bar series. It holds
// no per-call state and is safe for concurrent use.
type Engine struct {
	registry *Registry
	workers  int
	log      *slog.Logger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds how many requests of one batch are computed at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger used for per-request failures (debug level).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRecorder reports every computation to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithRegistry replaces the default descriptor registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		registry: DefaultRegistry(),
		workers:  defaultWorkers,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Registry returns the engine's descriptor registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Plan resolves a request without computing it: the descriptor, the resolved
// parameters and the result key. Callers use the key to look up caches.
// On error the key is the bare indicator name; batch results wrap it with
// FailedKey.
func (e *Engine) Plan(req Request) (Descriptor, Params, string, error) {
	if !req.ID.Valid() && req.Name != "" {
		return Descriptor{}, Params{}, req.Name, fmt.Errorf("%w: %q", ErrUnknownIndicator, req.Name)
	}
	d, err := e.registry.Resolve(req.ID)
	if err != nil {
		return Descriptor{}, Params{}, req.ID.String(), err
	}
	p, err := req.Resolve(d)
	if err != nil {
		return d, Params{}, d.ID.String(), err
	}
	return d, p, p.Key(d), nil
}

// FailedKey names the result of the i-th request of a batch when Plan
// rejected it. Failed requests never share a key, so none of them is lost
// to deduplication or collides with a valid request.
func FailedKey(key string, i int) string {
	return key + "#" + strconv.Itoa(i)
}

// Compute evaluates every request against series. The returned map is keyed
// by result key; requests that resolve to the same key are computed once.
// Requests Plan rejects are keyed by FailedKey with their batch index.
// Per-request failures are reported in Result.Err and never abort the batch.
// The only batch-level error is ErrInvalidSeries.
func (e *Engine) Compute(series model.Series, reqs []Request) (map[string]Result, error) {
	if err := ValidateSeries(series); err != nil {
		return nil, err
	}

	type job struct {
		key  string
		req  Request
		d    Descriptor
		p    Params
		err  error
		done Result
	}
	jobs := make([]*job, 0, len(reqs))
	seen := make(map[string]bool, len(reqs))
	for i, r := range reqs {
		d, p, key, err := e.Plan(r)
		if err != nil {
			key = FailedKey(key, i)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		jobs = append(jobs, &job{key: key, req: r, d: d, p: p, err: err})
	}

	_, high, low, close, volume := series.Columns()
	in := inputs{high: high, low: low, close: close, volume: volume}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, j := range jobs {
		g.Go(func() error {
			res := Result{Key: j.key, Request: j.req, Err: j.err}
			if res.Err == nil {
				start := time.Now()
				res.Output, res.Err = e.computeOne(series, in, j.d, j.p)
				if res.Output != nil {
					res.Output.Key = j.key
				}
				if e.recorder != nil {
					e.recorder.ObserveCompute(j.d.ID.String(), time.Since(start), res.Err)
				}
			}
			if res.Err != nil {
				e.log.Debug("indicator failed", "key", j.key, "series", series.Key(), "error", res.Err)
			}
			j.done = res
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(jobs))
	for _, j := range jobs {
		out[j.key] = j.done
	}
	return out, nil
}

// ComputeOne is Compute for a single request.
func (e *Engine) ComputeOne(series model.Series, req Request) (Result, error) {
	res, err := e.Compute(series, []Request{req})
	if err != nil {
		return Result{}, err
	}
	for _, r := range res {
		return r, nil
	}
	return Result{}, errors.New("indicator: empty result")
}

func (e *Engine) computeOne(series model.Series, in inputs, d Descriptor, p Params) (out *model.AlignedOutput, err error) {
	if d.RequiresHighLow && !series.HasHighLow {
		return nil, fmt.Errorf("%w: %s needs high/low", ErrMissingRequiredField, d.ID)
	}
	if d.RequiresVolume && !series.HasVolume {
		return nil, fmt.Errorf("%w: %s needs volume", ErrMissingRequiredField, d.ID)
	}

	k, err := kernelFor(d.ID)
	if err != nil {
		return nil, err
	}
	if err := k.validate(p); err != nil {
		return nil, err
	}
	warmup := k.warmup(p)
	if n := series.Len(); n < warmup+1 {
		return nil, fmt.Errorf("%w: %s needs %d bars, got %d", ErrInsufficientHistory, p.Key(d), warmup+1, n)
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %s panicked: %v", ErrAlignment, p.Key(d), r)
		}
	}()

	raw := k.calc(in, p)
	for i, line := range raw.Values {
		if j := firstNonFinite(line); j >= 0 {
			return nil, fmt.Errorf("%w: %s line %s has non-finite value at %d", ErrInvalidSeries, p.Key(d), raw.Lines[i], j)
		}
	}
	aligned, err := Align(series, raw)
	if err != nil {
		return nil, err
	}
	if aligned.Offset != warmup {
		return nil, fmt.Errorf("%w: %s offset %d, declared warm-up %d", ErrAlignment, p.Key(d), aligned.Offset, warmup)
	}
	aligned.ID = d.ID.String()
	return aligned, nil
}

// ValidateSeries checks that timestamps strictly increase and every bar value
// is finite.
func ValidateSeries(s model.Series) error {
	for i, b := range s.Bars {
		if i > 0 && !b.TS.After(s.Bars[i-1].TS) {
			return fmt.Errorf("%w: bar %d at %s does not follow %s", ErrInvalidSeries, i,
				b.TS.Format(time.RFC3339), s.Bars[i-1].TS.Format(time.RFC3339))
		}
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: bar %d has non-finite value", ErrInvalidSeries, i)
			}
		}
	}
	return nil
}
