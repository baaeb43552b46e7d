// Package kpi derives the headline metrics of the dashboard for one period
package kpi

import (
	"github.com/caravan-insights/priceanalyzer/pkg/aggregate"
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
	"github.com/shopspring/decimal"
)

// Class is the colour classification of a metric
type Class string

const (
	// ClassNegative marks a value below zero
	ClassNegative Class = "negative"
	// ClassPositive marks a value of zero or above
	ClassPositive Class = "positive"
	// ClassNeutral marks an undefined value
	ClassNeutral Class = "neutral"
)

// percentPlaces is the number of decimals kept on percentage deltas
const percentPlaces = 2

// Metric is one KPI. Value is nil when the metric is undefined.
type Metric struct {
	Value   *float64       `json:"value"`
	Class   Class          `json:"class"`
	Against *period.Period `json:"against,omitempty"`
}

// Available reports whether the metric could be computed
func (m Metric) Available() bool {
	return m.Value != nil
}

// Set holds the four dashboard KPIs
type Set struct {
	Period        period.Period `json:"period"`
	CurrentMedian Metric        `json:"current_median"`
	YoYDeltaPct   Metric        `json:"yoy_delta_pct"`
	QoQDeltaPct   Metric        `json:"qoq_delta_pct"`
	PriceGapPct   Metric        `json:"price_gap_pct"`
}

// Compute derives the KPIs of table for the current period. Undefined inputs
// (no prices, zero denominators) yield undefined metrics, never errors.
func Compute(table *dataset.Table, current period.Period) Set {
	currentMedian := roundPrice(aggregate.MedianIn(table, dataset.SalePrice, current))

	yearAgo := current.Add(-4)
	prevQuarter := current.Previous()

	set := Set{
		Period:        current,
		CurrentMedian: newMetric(currentMedian, nil),
		YoYDeltaPct: newMetric(
			DeltaPct(currentMedian, aggregate.MedianIn(table, dataset.SalePrice, yearAgo)),
			&yearAgo,
		),
		QoQDeltaPct: newMetric(
			DeltaPct(currentMedian, aggregate.MedianIn(table, dataset.SalePrice, prevQuarter)),
			&prevQuarter,
		),
		PriceGapPct: newMetric(
			DeltaPct(currentMedian, aggregate.MedianIn(table, dataset.AskingPrice, current)),
			nil,
		),
	}

	return set
}

// DeltaPct returns (current - base) / base * 100 rounded to two decimals, or
// nil when either side is missing or base is zero
func DeltaPct(current, base *float64) *float64 {
	if current == nil || base == nil || *base == 0 {
		return nil
	}

	c := decimal.NewFromFloat(*current)
	b := decimal.NewFromFloat(*base)

	v, _ := c.Sub(b).Div(b).Mul(decimal.NewFromInt(100)).Round(percentPlaces).Float64()
	return &v
}

// Classify maps a value to its colour class
func Classify(v *float64) Class {
	switch {
	case v == nil:
		return ClassNeutral
	case *v < 0:
		return ClassNegative
	default:
		return ClassPositive
	}
}

func newMetric(v *float64, against *period.Period) Metric {
	return Metric{
		Value:   v,
		Class:   Classify(v),
		Against: against,
	}
}

func roundPrice(v *float64) *float64 {
	if v == nil {
		return nil
	}

	r, _ := decimal.NewFromFloat(*v).Round(0).Float64()
	return &r
}
