package series

import (
	"math"
	"testing"

	"github.com/caravan-insights/priceanalyzer/pkg/aggregate"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultAxis(t *testing.T) AxisConfig {
	t.Helper()

	var cfg AxisConfig
	require.NoError(t, defaults.Set(&cfg))
	return cfg
}

func TestAxisConfig_Defaults(t *testing.T) {
	cfg := defaultAxis(t)

	assert.Equal(t, AxisDynamic, cfg.Mode)
	assert.InDelta(t, 60000, cfg.Span, 0)
	assert.InDelta(t, 10000, cfg.Step, 0)
	require.NoError(t, cfg.Validate())
}

func TestAxisConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AxisConfig
		wantErr error
	}{
		{name: "zero step", cfg: AxisConfig{Mode: AxisDynamic, Span: 1, Step: 0}, wantErr: ErrInvalidStep},
		{name: "zero span", cfg: AxisConfig{Mode: AxisDynamic, Span: 0, Step: 1}, wantErr: ErrInvalidSpan},
		{name: "inverted fixed range", cfg: AxisConfig{Mode: AxisFixed, Min: 5, Max: 5, Step: 1}, wantErr: ErrInvalidRange},
		{name: "unknown mode", cfg: AxisConfig{Mode: "log", Step: 1}, wantErr: ErrInvalidAxisMode},
		{name: "valid fixed", cfg: AxisConfig{Mode: AxisFixed, Min: 30000, Max: 80000, Step: 10000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		name      string
		values    []*float64
		wantMin   float64
		wantMax   float64
		wantTicks int
	}{
		{
			name:      "scenario medians",
			values:    vals(50000, 48000, 47000, 45000, 43000),
			wantMin:   10000, // 43000 - (60000 - 7000) / 2 = 16500, floored
			wantMax:   70000,
			wantTicks: 7,
		},
		{
			name:      "clamped at zero",
			values:    vals(5000, 12000),
			wantMin:   0,
			wantMax:   60000,
			wantTicks: 7,
		},
		{
			name:      "flat series is centred",
			values:    vals(45000, 45000),
			wantMin:   10000,
			wantMax:   70000,
			wantTicks: 7,
		},
		{
			name:      "undefined values are ignored",
			values:    []*float64{nil, ptr(45000), nil},
			wantMin:   10000,
			wantMax:   70000,
			wantTicks: 7,
		},
		{
			name:      "empty series",
			values:    nil,
			wantMin:   0,
			wantMax:   60000,
			wantTicks: 7,
		},
		{
			name:      "all undefined",
			values:    []*float64{nil, nil},
			wantMin:   0,
			wantMax:   60000,
			wantTicks: 7,
		},
		{
			name:      "range wider than span grows by steps",
			values:    vals(20000, 95000),
			wantMin:   10000,
			wantMax:   100000,
			wantTicks: 10,
		},
		{
			name:      "flooring keeps the maximum inside",
			values:    vals(25000, 83000),
			wantMin:   20000,
			wantMax:   90000,
			wantTicks: 8,
		},
	}

	cfg := defaultAxis(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			axis := Scale(tt.values, cfg)

			assert.InDelta(t, tt.wantMin, axis.Min, 1e-9)
			assert.InDelta(t, tt.wantMax, axis.Max, 1e-9)
			require.Len(t, axis.Ticks, tt.wantTicks)
			assert.InDelta(t, axis.Min, axis.Ticks[0], 1e-9)
			assert.InDelta(t, axis.Max, axis.Ticks[len(axis.Ticks)-1], 1e-9)

			_, hi, ok := bounds(tt.values)
			if ok {
				assert.LessOrEqual(t, hi, axis.Max)
			}
		})
	}
}

func TestScale_LargeMagnitudes(t *testing.T) {
	cfg := defaultAxis(t)

	axis := Scale(vals(1e300, 3e300), cfg)

	assert.InEpsilon(t, 1e300, axis.Min, 1e-9)
	assert.InEpsilon(t, 3e300, axis.Max, 1e-9)
	assert.NotEmpty(t, axis.Ticks)
	assert.LessOrEqual(t, len(axis.Ticks), maxTicks)
}

func TestScale_InfiniteValuesIgnored(t *testing.T) {
	cfg := defaultAxis(t)
	inf := math.Inf(1)

	axis := Scale([]*float64{&inf, ptr(45000)}, cfg)

	assert.InDelta(t, 10000, axis.Min, 1e-9)
	assert.InDelta(t, 70000, axis.Max, 1e-9)
}

func TestScale_Fixed(t *testing.T) {
	cfg := AxisConfig{Mode: AxisFixed, Min: 30000, Max: 80000, Step: 10000}
	axis := Scale(vals(1, 1000000), cfg)

	assert.Equal(t, Axis{Min: 30000, Max: 80000, Ticks: []float64{30000, 40000, 50000, 60000, 70000, 80000}}, axis)
}

func TestScale_Deterministic(t *testing.T) {
	cfg := defaultAxis(t)
	values := vals(43210, 51234, 47000)
	assert.Equal(t, Scale(values, cfg), Scale(values, cfg))
}

func TestWindow(t *testing.T) {
	stats := []aggregate.PeriodStat{
		{Period: period.Period{Year: 2023, Quarter: 4}, Count: 5},
		{Period: period.Period{Year: 2022, Quarter: 1}, Count: 1},
		{Period: period.Period{Year: 2023, Quarter: 1}, Count: 3},
		{Period: period.Period{Year: 2022, Quarter: 3}, Count: 2},
	}

	got := Window(stats, 3)
	require.Len(t, got, 3)
	assert.Equal(t, period.Period{Year: 2022, Quarter: 3}, got[0].Period)
	assert.Equal(t, period.Period{Year: 2023, Quarter: 1}, got[1].Period)
	assert.Equal(t, period.Period{Year: 2023, Quarter: 4}, got[2].Period)
	assert.Equal(t, 5, got[2].Count)

	assert.Len(t, Window(stats, 10), 4)
	assert.Empty(t, Window(stats, 0))
	assert.Empty(t, Window(nil, 5))
}

func TestAlign(t *testing.T) {
	periods := []period.Period{{Year: 2023, Quarter: 1}, {Year: 2023, Quarter: 2}, {Year: 2023, Quarter: 3}}
	stats := []aggregate.PeriodStat{
		{Period: period.Period{Year: 2023, Quarter: 3}, Value: ptr(3), Count: 1},
		{Period: period.Period{Year: 2022, Quarter: 4}, Value: ptr(9), Count: 1},
	}

	got := Align(stats, periods)
	require.Len(t, got, 3)
	assert.Nil(t, got[0].Value)
	assert.Nil(t, got[1].Value)
	assert.Equal(t, ptr(3), got[2].Value)
	assert.Equal(t, []*float64{nil, nil, ptr(3)}, Values(got))
}

func vals(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i := range vs {
		out[i] = ptr(vs[i])
	}
	return out
}

func ptr(v float64) *float64 {
	return &v
}
