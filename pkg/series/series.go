// Package series windows per-period statistics and scales their y-axis
package series

import (
	"errors"
	"math"

	"github.com/caravan-insights/priceanalyzer/pkg/aggregate"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
)

// Axis modes
const (
	AxisDynamic = "dynamic"
	AxisFixed   = "fixed"
)

// maxTicks bounds the tick list for degenerate configurations
const maxTicks = 1000

// Define static errors
var (
	ErrInvalidAxisMode = errors.New("axis mode must be dynamic or fixed")
	ErrInvalidStep     = errors.New("axis step must be positive")
	ErrInvalidSpan     = errors.New("axis span must be positive")
	ErrInvalidRange    = errors.New("fixed axis max must be greater than min")
)

// AxisConfig configures y-axis scaling
type AxisConfig struct {
	Mode string  `yaml:"mode" json:"mode" default:"dynamic"`
	Span float64 `yaml:"span" json:"span" default:"60000"`
	Step float64 `yaml:"step" json:"step" default:"10000"`
	// Min and Max bound a fixed axis
	Min float64 `yaml:"min" json:"min" default:"30000"`
	Max float64 `yaml:"max" json:"max" default:"80000"`
}

// Validate checks the axis configuration
func (c *AxisConfig) Validate() error {
	if c.Step <= 0 {
		return ErrInvalidStep
	}

	switch c.Mode {
	case AxisDynamic:
		if c.Span <= 0 {
			return ErrInvalidSpan
		}
	case AxisFixed:
		if c.Max <= c.Min {
			return ErrInvalidRange
		}
	default:
		return ErrInvalidAxisMode
	}

	return nil
}

// Axis is a computed y-axis range with evenly spaced ticks
type Axis struct {
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Ticks []float64 `json:"ticks"`
}

// Window keeps the stats of the n latest observed periods, ascending
func Window(stats []aggregate.PeriodStat, n int) []aggregate.PeriodStat {
	ps := make([]period.Period, len(stats))
	for i, s := range stats {
		ps[i] = s.Period
	}

	keep := period.LastN(ps, n)
	byPeriod := make(map[period.Period]aggregate.PeriodStat, len(stats))
	for _, s := range stats {
		byPeriod[s.Period] = s
	}

	out := make([]aggregate.PeriodStat, 0, len(keep))
	for _, p := range keep {
		out = append(out, byPeriod[p])
	}

	return out
}

// Align returns one stat per period in periods, taking values from stats and
// leaving periods without a stat undefined
func Align(stats []aggregate.PeriodStat, periods []period.Period) []aggregate.PeriodStat {
	byPeriod := make(map[period.Period]aggregate.PeriodStat, len(stats))
	for _, s := range stats {
		byPeriod[s.Period] = s
	}

	out := make([]aggregate.PeriodStat, len(periods))
	for i, p := range periods {
		if s, ok := byPeriod[p]; ok {
			out[i] = s
			continue
		}
		out[i] = aggregate.PeriodStat{Period: p}
	}

	return out
}

// Values returns the statistic values of stats in order
func Values(stats []aggregate.PeriodStat) []*float64 {
	out := make([]*float64, len(stats))
	for i, s := range stats {
		out[i] = s.Value
	}
	return out
}

// Scale computes the y-axis for values. Undefined values are ignored.
//
// In dynamic mode the axis spans cfg.Span centred on the data, clamped at
// zero and with the lower bound floored to a multiple of cfg.Step. If the
// data does not fit, the span grows by whole steps. An empty series yields
// [0, Span]. In fixed mode the configured range is returned.
func Scale(values []*float64, cfg AxisConfig) Axis {
	if cfg.Mode == AxisFixed {
		return newAxis(cfg.Min, cfg.Max, cfg.Step)
	}

	lo, hi, ok := bounds(values)
	if !ok {
		return newAxis(0, cfg.Span, cfg.Step)
	}

	span := cfg.Span
	if hi-lo > span {
		span = math.Ceil((hi-lo)/cfg.Step) * cfg.Step
	}

	lower := math.Max(lo-(span-(hi-lo))/2, 0)
	lower = math.Floor(lower/cfg.Step) * cfg.Step

	// flooring can push the top of the data out of range
	if lower+span < hi {
		span = math.Ceil((hi-lower)/cfg.Step) * cfg.Step
	}

	return newAxis(lower, lower+span, cfg.Step)
}

func bounds(values []*float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		lo = math.Min(lo, *v)
		hi = math.Max(hi, *v)
		ok = true
	}
	return lo, hi, ok
}

func newAxis(lower, upper, step float64) Axis {
	ticks := make([]float64, 0, int(math.Min((upper-lower)/step+1, maxTicks)))
	for i := 0; i < maxTicks; i++ {
		tick := lower + float64(i)*step
		if tick > upper+step*1e-9 {
			break
		}
		ticks = append(ticks, tick)
	}

	return Axis{Min: lower, Max: upper, Ticks: ticks}
}
