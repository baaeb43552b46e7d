// Package pipeline turns the dataset and a facet selection into a dashboard
package pipeline

import (
	"fmt"
	"time"

	"github.com/caravan-insights/priceanalyzer/pkg/aggregate"
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/filter"
	"github.com/caravan-insights/priceanalyzer/pkg/kpi"
	"github.com/caravan-insights/priceanalyzer/pkg/observability"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
	"github.com/caravan-insights/priceanalyzer/pkg/series"
)

// Dashboard is the full output of one pipeline run
type Dashboard struct {
	Selection     filter.Selection `json:"selection"`
	CurrentPeriod period.Period    `json:"current_period"`
	Periods       []period.Period  `json:"periods"`
	Rows          int              `json:"rows"`
	CurrentRows   int              `json:"current_rows"`
	KPIs          kpi.Set          `json:"kpis"`
	Price         PriceSeries      `json:"price"`
	FacetMedians  []FacetSeries    `json:"facet_medians"`
	Shares        []ShareSeries    `json:"shares"`
	LowSample     bool             `json:"low_sample"`
}

// PriceSeries is the windowed median sale price with its y-axis
type PriceSeries struct {
	Points []aggregate.PeriodStat `json:"points"`
	Axis   series.Axis            `json:"axis"`
}

// FacetSeries is the windowed median sale price per value of one facet
type FacetSeries struct {
	Facet  dataset.Facet         `json:"facet"`
	Values []aggregate.FacetStat `json:"values"`
	Axis   series.Axis           `json:"axis"`
}

// ShareSeries holds the windowed shares of one facet
type ShareSeries struct {
	Facet  dataset.Facet       `json:"facet"`
	Mode   aggregate.ShareMode `json:"mode"`
	Shares []aggregate.Share   `json:"shares"`
}

// Pipeline computes dashboards over a read-only dataset. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	ds           *dataset.Dataset
	cfg          Config
	shareMode    aggregate.ShareMode
	shareFacets  []dataset.Facet
	medianFacets []dataset.Facet
}

// New validates cfg and creates a pipeline over ds
func New(ds *dataset.Dataset, cfg *Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mode, err := aggregate.ParseShareMode(cfg.ShareMode)
	if err != nil {
		return nil, err
	}

	shareFacets, err := parseFacets(cfg.ShareFacets)
	if err != nil {
		return nil, err
	}

	medianFacets, err := parseFacets(cfg.MedianFacets)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		ds:           ds,
		cfg:          *cfg,
		shareMode:    mode,
		shareFacets:  shareFacets,
		medianFacets: medianFacets,
	}, nil
}

// Dataset returns the dataset the pipeline runs over
func (p *Pipeline) Dataset() *dataset.Dataset {
	return p.ds
}

// CurrentPeriod resolves the configured current period. "latest" is the most
// recent period of the full dataset, independent of any selection.
func (p *Pipeline) CurrentPeriod() (period.Period, error) {
	if p.cfg.CurrentPeriod != CurrentLatest {
		return period.Parse(p.cfg.CurrentPeriod)
	}

	latest, ok := period.Latest(p.ds.Table().Periods())
	if !ok {
		return period.Period{}, ErrNoPeriods
	}

	return latest, nil
}

// Run filters the dataset by sel and derives every dashboard output. Empty
// selections and missing data yield undefined statistics, not errors.
func (p *Pipeline) Run(sel filter.Selection) (*Dashboard, error) {
	start := time.Now()

	dash, err := p.run(sel)

	status := "success"
	if err != nil {
		status = "failed"
	}
	observability.RecordPipelineRun(status, time.Since(start).Seconds())

	return dash, err
}

func (p *Pipeline) run(sel filter.Selection) (*Dashboard, error) {
	current, err := p.CurrentPeriod()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current period: %w", err)
	}

	filtered := filter.Apply(p.ds.Table(), sel)
	window := p.window(filtered, current)

	active := sel.Active()
	names := make([]string, len(active))
	for i, f := range active {
		names[i] = string(f)
	}
	observability.RecordSelection(filtered.Len(), names)

	dash := &Dashboard{
		Selection:     sel,
		CurrentPeriod: current,
		Periods:       window,
		Rows:          filtered.Len(),
		CurrentRows:   filtered.CountIn(current),
		KPIs:          kpi.Compute(filtered, current),
		Price:         p.priceSeries(filtered, window),
		FacetMedians:  make([]FacetSeries, 0, len(p.medianFacets)),
		Shares:        make([]ShareSeries, 0, len(p.shareFacets)),
		LowSample:     aggregate.LowSample(filtered, current, p.cfg.LowSampleThreshold),
	}

	for _, f := range p.medianFacets {
		dash.FacetMedians = append(dash.FacetMedians, p.facetSeries(filtered, f, window))
	}

	for _, f := range p.shareFacets {
		dash.Shares = append(dash.Shares, ShareSeries{
			Facet:  f,
			Mode:   p.shareMode,
			Shares: aggregate.Shares(filtered, f, p.shareMode, window, p.ds.FacetValues(f)),
		})
	}

	recordOutcome(dash)

	return dash, nil
}

// window returns the trailing observed periods of table that are not after current
func (p *Pipeline) window(table *dataset.Table, current period.Period) []period.Period {
	observed := table.Periods()

	upTo := make([]period.Period, 0, len(observed))
	for _, q := range observed {
		if !current.Before(q) {
			upTo = append(upTo, q)
		}
	}

	return period.LastN(upTo, p.cfg.Periods)
}

func (p *Pipeline) priceSeries(table *dataset.Table, window []period.Period) PriceSeries {
	points := series.Align(aggregate.MedianByPeriod(table, dataset.SalePrice), window)

	return PriceSeries{
		Points: points,
		Axis:   series.Scale(series.Values(points), p.cfg.Axis),
	}
}

func (p *Pipeline) facetSeries(table *dataset.Table, f dataset.Facet, window []period.Period) FacetSeries {
	inWindow := make(map[period.Period]struct{}, len(window))
	for _, q := range window {
		inWindow[q] = struct{}{}
	}

	recent := table.Where(func(tx *dataset.Transaction) bool {
		_, ok := inWindow[tx.Period]
		return ok
	})

	groups := aggregate.MedianByPeriodAndFacet(recent, dataset.SalePrice, f, p.ds.FacetValues(f))

	var all []*float64
	for i := range groups {
		groups[i].Series = series.Align(groups[i].Series, window)
		all = append(all, series.Values(groups[i].Series)...)
	}

	return FacetSeries{
		Facet:  f,
		Values: groups,
		Axis:   series.Scale(all, p.cfg.Axis),
	}
}

func recordOutcome(dash *Dashboard) {
	if dash.LowSample {
		observability.RecordLowSample()
	}

	metrics := map[string]kpi.Metric{
		"current_median": dash.KPIs.CurrentMedian,
		"yoy_delta_pct":  dash.KPIs.YoYDeltaPct,
		"qoq_delta_pct":  dash.KPIs.QoQDeltaPct,
		"price_gap_pct":  dash.KPIs.PriceGapPct,
	}
	for name, m := range metrics {
		if !m.Available() {
			observability.RecordUndefinedKPI(name)
		}
	}
}
