package indicator

import "fmt"

// inputs are the bar columns an indicator may read.
type inputs struct {
	high, low, close, volume []float64
}

// kernel binds one indicator to its computation. warmup must equal
// len(input) - len(output) for every input long enough to produce output;
// the engine checks this against the aligned offset.
type kernel struct {
	warmup   func(p Params) int
	validate func(p Params) error
	calc     func(in inputs, p Params) Output
}

func kernelFor(id ID) (kernel, error) {
	switch id {
	case SMA:
		return periodKernel(func(p int) Pipeline { return Pipeline{smaStage(p)} }, SMAValues), nil
	case EMA:
		return periodKernel(func(p int) Pipeline { return Pipeline{emaStage(p)} }, EMAValues), nil
	case WMA:
		return periodKernel(func(p int) Pipeline { return Pipeline{wmaStage(p)} }, WMAValues), nil
	case SMMA:
		return periodKernel(func(p int) Pipeline { return Pipeline{smmaStage(p)} }, SMMAValues), nil
	case DEMA:
		return periodKernel(func(p int) Pipeline { return emaChain(p, 2) }, DEMAValues), nil
	case TEMA:
		return periodKernel(func(p int) Pipeline { return emaChain(p, 3) }, TEMAValues), nil
	case TRIX:
		return periodKernel(trixPipeline, TRIXValues), nil
	case HMA:
		return periodKernel(hullPipeline, HMAValues), nil
	case ZLEMA:
		return periodKernel(zlemaPipeline, ZLEMAValues), nil
	case T3:
		return kernel{
			warmup:   func(p Params) int { return emaChain(p.Period, 6).Warmup() },
			validate: all(positive("period", pPeriod), unitFactor),
			calc: func(in inputs, p Params) Output {
				return single("value", T3Values(in.close, p.Period, p.Factor))
			},
		}, nil
	case VIDYA:
		return kernel{
			warmup:   func(p Params) int { return cmoPipeline(p.Period).Warmup() },
			validate: all(positive("period", pPeriod), unitFactor),
			calc: func(in inputs, p Params) Output {
				alpha := p.Factor
				if alpha == 0 {
					alpha = 2 / float64(p.Period+1)
				}
				return single("value", VIDYAValues(in.close, p.Period, alpha))
			},
		}, nil
	case CMO:
		return periodKernel(cmoPipeline, CMOValues), nil
	case RSI:
		return kernel{
			warmup:   func(p Params) int { return rsiWarmup(p.Period) },
			validate: positive("period", pPeriod),
			calc: func(in inputs, p Params) Output {
				return single("value", RSIValues(in.close, p.Period))
			},
		}, nil
	case StochRSI:
		return kernel{
			warmup: func(p Params) int {
				return rsiWarmup(p.Period) + (p.Period - 1) + (p.Signal - 1)
			},
			validate: all(positive("period", pPeriod), positive("signal period", pSignal)),
			calc: func(in inputs, p Params) Output {
				k, d := StochRSIValues(in.close, p.Period, p.Signal)
				return Output{Lines: []string{"k", "d"}, Values: [][]float64{k, d}}
			},
		}, nil
	case Stochastic:
		return kernel{
			warmup:   func(p Params) int { return (p.Period - 1) + (p.Signal - 1) },
			validate: all(positive("period", pPeriod), positive("signal period", pSignal)),
			calc: func(in inputs, p Params) Output {
				k, d := StochasticValues(in.high, in.low, in.close, p.Period, p.Signal)
				return Output{Lines: []string{"k", "d"}, Values: [][]float64{k, d}}
			},
		}, nil
	case WilliamsR:
		return hlcKernel(windowWarmup, WilliamsRValues), nil
	case CCI:
		return hlcKernel(windowWarmup, CCIValues), nil
	case ROC:
		return periodKernel(lagPipeline, ROCValues), nil
	case Momentum:
		return periodKernel(lagPipeline, MomentumValues), nil
	case MACD:
		return kernel{
			warmup: func(p Params) int { return (p.Slow - 1) + (p.Signal - 1) },
			validate: all(
				positive("fast period", pFast), positive("slow period", pSlow), positive("signal period", pSignal),
				less("fast period", pFast, "slow period", pSlow),
				less("signal period", pSignal, "slow period", pSlow),
			),
			calc: func(in inputs, p Params) Output {
				m, s, h := MACDValues(in.close, p.Fast, p.Slow, p.Signal)
				return Output{Lines: []string{"macd", "signal", "histogram"}, Values: [][]float64{m, s, h}}
			},
		}, nil
	case ADX:
		return kernel{
			warmup:   func(p Params) int { return 2*p.Period - 1 },
			validate: positive("period", pPeriod),
			calc: func(in inputs, p Params) Output {
				adx, plus, minus := ADXValues(in.high, in.low, in.close, p.Period)
				return Output{Lines: []string{"adx", "plus_di", "minus_di"}, Values: [][]float64{adx, plus, minus}}
			},
		}, nil
	case ATR:
		return hlcKernel(lagWarmup, ATRValues), nil
	case Bollinger:
		return kernel{
			warmup:   windowWarmup,
			validate: all(positive("period", pPeriod), nonNegative("multiplier", pMultiplier)),
			calc: func(in inputs, p Params) Output {
				return bands(BollingerValues(in.close, p.Period, p.Multiplier))
			},
		}, nil
	case Keltner:
		return kernel{
			warmup:   lagWarmup,
			validate: all(positive("period", pPeriod), nonNegative("multiplier", pMultiplier)),
			calc: func(in inputs, p Params) Output {
				return bands(KeltnerValues(in.high, in.low, in.close, p.Period, p.Multiplier))
			},
		}, nil
	case Donchian:
		return kernel{
			warmup:   windowWarmup,
			validate: positive("period", pPeriod),
			calc: func(in inputs, p Params) Output {
				return bands(DonchianValues(in.high, in.low, p.Period))
			},
		}, nil
	case AwesomeOsc:
		return kernel{
			warmup:   func(p Params) int { return p.Slow - 1 },
			validate: fastSlow,
			calc: func(in inputs, p Params) Output {
				return single("value", AwesomeValues(in.high, in.low, p.Fast, p.Slow))
			},
		}, nil
	case UltimateOsc:
		return kernel{
			warmup: func(p Params) int { return p.Slow },
			validate: all(
				positive("short period", pFast), positive("mid period", pPeriod), positive("long period", pSlow),
				less("short period", pFast, "mid period", pPeriod),
				less("mid period", pPeriod, "long period", pSlow),
			),
			calc: func(in inputs, p Params) Output {
				return single("value", UltimateValues(in.high, in.low, in.close, p.Fast, p.Period, p.Slow))
			},
		}, nil
	case OBV:
		return kernel{
			warmup:   func(Params) int { return 0 },
			validate: func(Params) error { return nil },
			calc: func(in inputs, _ Params) Output {
				return single("value", OBVValues(in.close, in.volume))
			},
		}, nil
	case VWAP:
		return kernel{
			warmup: func(p Params) int {
				if p.Period <= 0 {
					return 0
				}
				return p.Period - 1
			},
			validate: func(Params) error { return nil },
			calc: func(in inputs, p Params) Output {
				return single("value", VWAPValues(in.high, in.low, in.close, in.volume, p.Period))
			},
		}, nil
	case MFI:
		return volumeKernel(lagWarmup, MFIValues), nil
	case CMF:
		return volumeKernel(windowWarmup, CMFValues), nil
	case VolumeOsc:
		return kernel{
			warmup:   func(p Params) int { return p.Slow - 1 },
			validate: fastSlow,
			calc: func(in inputs, p Params) Output {
				return single("value", VolumeOscValues(in.volume, p.Fast, p.Slow))
			},
		}, nil
	case VolumeROC:
		return kernel{
			warmup:   lagWarmup,
			validate: positive("period", pPeriod),
			calc: func(in inputs, p Params) Output {
				return single("value", VolumeROCValues(in.volume, p.Period))
			},
		}, nil
	}
	return kernel{}, fmt.Errorf("%w: %s", ErrUnknownIndicator, id)
}

// periodKernel covers single-period indicators of close whose warm-up is
// that of a pipeline.
func periodKernel(pipe func(period int) Pipeline, f func([]float64, int) []float64) kernel {
	return kernel{
		warmup:   func(p Params) int { return pipe(p.Period).Warmup() },
		validate: positive("period", pPeriod),
		calc: func(in inputs, p Params) Output {
			return single("value", f(in.close, p.Period))
		},
	}
}

func hlcKernel(warmup func(Params) int, f func(high, low, close []float64, period int) []float64) kernel {
	return kernel{
		warmup:   warmup,
		validate: positive("period", pPeriod),
		calc: func(in inputs, p Params) Output {
			return single("value", f(in.high, in.low, in.close, p.Period))
		},
	}
}

func volumeKernel(warmup func(Params) int, f func(high, low, close, volume []float64, period int) []float64) kernel {
	return kernel{
		warmup:   warmup,
		validate: positive("period", pPeriod),
		calc: func(in inputs, p Params) Output {
			return single("value", f(in.high, in.low, in.close, in.volume, p.Period))
		},
	}
}

func cmoPipeline(period int) Pipeline { return Pipeline{gainStage, sumStage(period)} }

// lagPipeline consumes period points: one per step of lag.
func lagPipeline(period int) Pipeline {
	return Pipeline{{Name: "lag", Warmup: period}}
}

// windowWarmup is the warm-up of a trailing window over the raw series.
func windowWarmup(p Params) int { return p.Period - 1 }

// lagWarmup is the warm-up of a window over one-bar differences.
func lagWarmup(p Params) int { return p.Period }

// ── Parameter checks ──

func pPeriod(p Params) float64     { return float64(p.Period) }
func pFast(p Params) float64       { return float64(p.Fast) }
func pSlow(p Params) float64       { return float64(p.Slow) }
func pSignal(p Params) float64     { return float64(p.Signal) }
func pMultiplier(p Params) float64 { return p.Multiplier }

func positive(name string, get func(Params) float64) func(Params) error {
	return func(p Params) error {
		if get(p) <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidParameter, name, get(p))
		}
		return nil
	}
}

func nonNegative(name string, get func(Params) float64) func(Params) error {
	return func(p Params) error {
		if get(p) < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %g", ErrInvalidParameter, name, get(p))
		}
		return nil
	}
}

func less(aName string, a func(Params) float64, bName string, b func(Params) float64) func(Params) error {
	return func(p Params) error {
		if a(p) >= b(p) {
			return fmt.Errorf("%w: %s (%g) must be less than %s (%g)", ErrInvalidParameter, aName, a(p), bName, b(p))
		}
		return nil
	}
}

func unitFactor(p Params) error {
	if p.Factor < 0 || p.Factor > 1 {
		return fmt.Errorf("%w: factor must be in (0, 1], got %g", ErrInvalidParameter, p.Factor)
	}
	return nil
}

var fastSlow = all(
	positive("fast period", pFast), positive("slow period", pSlow),
	less("fast period", pFast, "slow period", pSlow),
)

func all(checks ...func(Params) error) func(Params) error {
	return func(p Params) error {
		for _, c := range checks {
			if err := c(p); err != nil {
				return err
			}
		}
		return nil
	}
}
