package pipeline

import (
	"testing"

	"github.com/caravan-insights/priceanalyzer/internal/testutil"
	"github.com/caravan-insights/priceanalyzer/pkg/aggregate"
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/filter"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoglobals // Test fixture
var ageOrder = []string{"Bis 2 Jahre", "2 - 4 Jahre", "4 - 6 Jahre", "6 Jahre und älter"}

func defaultConfig(t *testing.T) *Config {
	t.Helper()

	cfg := &Config{}
	require.NoError(t, defaults.Set(cfg))
	return cfg
}

func scenarioPipeline(t *testing.T, mutate ...func(*Config)) *Pipeline {
	t.Helper()

	cfg := defaultConfig(t)
	for _, m := range mutate {
		m(cfg)
	}

	p, err := New(dataset.NewDataset(testutil.ScenarioTable(t), ageOrder, nil), cfg)
	require.NoError(t, err)
	return p
}

func TestConfig_Defaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, 5, cfg.Periods)
	assert.Equal(t, 10, cfg.LowSampleThreshold)
	assert.Equal(t, CurrentLatest, cfg.CurrentPeriod)
	assert.Equal(t, "count", cfg.ShareMode)
	assert.Equal(t, []string{"category", "age_bucket"}, cfg.ShareFacets)
	assert.InDelta(t, 60000, cfg.Axis.Span, 0)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "zero periods", mutate: func(c *Config) { c.Periods = 0 }, wantErr: ErrInvalidPeriods},
		{name: "negative threshold", mutate: func(c *Config) { c.LowSampleThreshold = -1 }, wantErr: ErrInvalidThreshold},
		{name: "bad current period", mutate: func(c *Config) { c.CurrentPeriod = "yesterday" }, wantErr: period.ErrInvalidPeriod},
		{name: "bad share mode", mutate: func(c *Config) { c.ShareMode = "avg" }, wantErr: aggregate.ErrUnknownShareMode},
		{name: "bad share facet", mutate: func(c *Config) { c.ShareFacets = []string{"colour"} }, wantErr: dataset.ErrUnknownFacet},
		{name: "bad median facet", mutate: func(c *Config) { c.MedianFacets = []string{"colour"} }, wantErr: dataset.ErrUnknownFacet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestRun_Scenario(t *testing.T) {
	p := scenarioPipeline(t)

	dash, err := p.Run(filter.Selection{Category: "A", AgeBucket: filter.Total, MileageBucket: filter.Total, Region: filter.Total})
	require.NoError(t, err)

	assert.Equal(t, period.Period{Year: 2023, Quarter: 4}, dash.CurrentPeriod)
	assert.Equal(t, 15, dash.Rows)
	assert.Equal(t, 3, dash.CurrentRows)
	assert.True(t, dash.LowSample)

	require.NotNil(t, dash.KPIs.CurrentMedian.Value)
	assert.InDelta(t, 43000, *dash.KPIs.CurrentMedian.Value, 1e-9)
	require.NotNil(t, dash.KPIs.YoYDeltaPct.Value)
	assert.InDelta(t, -14.0, *dash.KPIs.YoYDeltaPct.Value, 1e-9)

	require.Len(t, dash.Periods, 5)
	require.Len(t, dash.Price.Points, 5)
	for i, pt := range dash.Price.Points {
		require.NotNil(t, pt.Value)
		assert.InDelta(t, testutil.ScenarioMedians[i], *pt.Value, 1e-9)
	}
	assert.InDelta(t, 10000, dash.Price.Axis.Min, 1e-9)
	assert.InDelta(t, 70000, dash.Price.Axis.Max, 1e-9)

	require.Len(t, dash.Shares, 2)
	assert.Equal(t, dataset.FacetCategory, dash.Shares[0].Facet)
	assert.Equal(t, aggregate.ShareCount, dash.Shares[0].Mode)
	for _, s := range dash.Shares[0].Shares {
		assert.Equal(t, "A", s.Value)
		assert.InDelta(t, 100, s.Percent, 1e-9)
	}

	require.Len(t, dash.FacetMedians, 2)
	byAge := dash.FacetMedians[1]
	assert.Equal(t, dataset.FacetAgeBucket, byAge.Facet)
	require.Len(t, byAge.Values, 2)
	assert.Equal(t, "Bis 2 Jahre", byAge.Values[0].Value)
	assert.Equal(t, "2 - 4 Jahre", byAge.Values[1].Value)
	assert.Len(t, byAge.Values[0].Series, 5)
}

func TestRun_AllTotalCoversFullTable(t *testing.T) {
	p := scenarioPipeline(t)

	dash, err := p.Run(filter.Selection{})
	require.NoError(t, err)
	assert.Equal(t, p.Dataset().Table().Len(), dash.Rows)
	assert.Equal(t, 4, dash.CurrentRows)
}

func TestRun_Idempotent(t *testing.T) {
	p := scenarioPipeline(t)
	sel := filter.Selection{AgeBucket: "Bis 2 Jahre"}

	first, err := p.Run(sel)
	require.NoError(t, err)
	second, err := p.Run(sel)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_EmptySelection(t *testing.T) {
	p := scenarioPipeline(t)

	dash, err := p.Run(filter.Selection{Category: "Alkoven"})
	require.NoError(t, err)

	assert.Zero(t, dash.Rows)
	assert.True(t, dash.LowSample)
	assert.False(t, dash.KPIs.CurrentMedian.Available())
	assert.False(t, dash.KPIs.YoYDeltaPct.Available())
	assert.Empty(t, dash.Price.Points)
	assert.InDelta(t, 0, dash.Price.Axis.Min, 1e-9)
	assert.InDelta(t, 60000, dash.Price.Axis.Max, 1e-9)
	for _, s := range dash.Shares {
		assert.Empty(t, s.Shares)
	}
}

func TestRun_LatestIgnoresSelection(t *testing.T) {
	table := dataset.NewTable([]dataset.Transaction{
		testutil.Tx(t, "2023-08-01", 40000, testutil.WithCategory("A")),
		testutil.Tx(t, "2023-11-01", 44000, testutil.WithCategory("B")),
	})
	p, err := New(dataset.NewDataset(table, nil, nil), defaultConfig(t))
	require.NoError(t, err)

	dash, err := p.Run(filter.Selection{Category: "A"})
	require.NoError(t, err)

	assert.Equal(t, period.Period{Year: 2023, Quarter: 4}, dash.CurrentPeriod)
	assert.False(t, dash.KPIs.CurrentMedian.Available())
	assert.Equal(t, []period.Period{{Year: 2023, Quarter: 3}}, dash.Periods)
}

func TestRun_MissingPriorYear(t *testing.T) {
	table := dataset.NewTable([]dataset.Transaction{
		testutil.Tx(t, "2023-08-01", 40000),
		testutil.Tx(t, "2023-11-01", 44000),
	})
	p, err := New(dataset.NewDataset(table, nil, nil), defaultConfig(t))
	require.NoError(t, err)

	dash, err := p.Run(filter.Selection{})
	require.NoError(t, err)
	assert.False(t, dash.KPIs.YoYDeltaPct.Available())
	assert.True(t, dash.KPIs.QoQDeltaPct.Available())
}

func TestRun_FixedCurrentPeriod(t *testing.T) {
	p := scenarioPipeline(t, func(c *Config) { c.CurrentPeriod = "2023Q3" })

	dash, err := p.Run(filter.Selection{Category: "A"})
	require.NoError(t, err)

	assert.Equal(t, period.Period{Year: 2023, Quarter: 3}, dash.CurrentPeriod)
	require.Len(t, dash.Periods, 4)
	assert.Equal(t, period.Period{Year: 2023, Quarter: 3}, dash.Periods[3])
	assert.False(t, dash.KPIs.YoYDeltaPct.Available())
	require.NotNil(t, dash.KPIs.QoQDeltaPct.Value)
	// (45000 - 47000) / 47000 * 100
	assert.InDelta(t, -4.26, *dash.KPIs.QoQDeltaPct.Value, 1e-9)
}

func TestRun_SumShareMode(t *testing.T) {
	p := scenarioPipeline(t, func(c *Config) {
		c.ShareMode = "sum"
		c.ShareFacets = []string{"category"}
	})

	dash, err := p.Run(filter.Selection{})
	require.NoError(t, err)
	require.Len(t, dash.Shares, 1)
	assert.Equal(t, aggregate.ShareSum, dash.Shares[0].Mode)
	assert.InDelta(t, 150000.0/240000*100, dash.Shares[0].Shares[0].Percent, 1e-9)
}

func TestRun_ShorterWindow(t *testing.T) {
	p := scenarioPipeline(t, func(c *Config) { c.Periods = 2 })

	dash, err := p.Run(filter.Selection{})
	require.NoError(t, err)
	assert.Equal(t, []period.Period{{Year: 2023, Quarter: 3}, {Year: 2023, Quarter: 4}}, dash.Periods)
	assert.Len(t, dash.Shares[0].Shares, 4)
}

func TestRun_EmptyDataset(t *testing.T) {
	p, err := New(dataset.NewDataset(dataset.NewTable(nil), nil, nil), defaultConfig(t))
	require.NoError(t, err)

	_, err = p.Run(filter.Selection{})
	require.ErrorIs(t, err, ErrNoPeriods)
}
