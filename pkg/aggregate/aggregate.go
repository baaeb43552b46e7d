// Package aggregate computes per-period statistics over a transaction table
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
)

// ShareMode selects what a share is a share of
type ShareMode string

const (
	// ShareCount weights every sale equally (volume mix)
	ShareCount ShareMode = "count"
	// ShareSum weights every sale by its sale price (value mix)
	ShareSum ShareMode = "sum"
)

// ErrUnknownShareMode is returned for share modes other than count and sum
var ErrUnknownShareMode = errors.New("unknown share mode")

// ParseShareMode validates a share mode name
func ParseShareMode(s string) (ShareMode, error) {
	switch ShareMode(s) {
	case ShareCount, ShareSum:
		return ShareMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownShareMode, s)
	}
}

// PeriodStat is a median over one period. Value is nil when the period has no
// non-null price.
type PeriodStat struct {
	Period period.Period `json:"period"`
	Value  *float64      `json:"value"`
	Count  int           `json:"count"`
}

// FacetStat is a median per period for one facet value
type FacetStat struct {
	Value  string       `json:"value"`
	Series []PeriodStat `json:"series"`
}

// Share is one facet value's part of a period total
type Share struct {
	Period  period.Period `json:"period"`
	Value   string        `json:"value"`
	Amount  float64       `json:"amount"`
	Total   float64       `json:"total"`
	Percent float64       `json:"percent"`
}

// Median returns the median of values, or nil for an empty input. values is
// not modified.
func Median(values []float64) *float64 {
	n := len(values)
	if n == 0 {
		return nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var m float64
	if n%2 == 1 {
		m = sorted[n/2]
	} else {
		m = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return &m
}

// prices collects the non-null values of field per period
func prices(table *dataset.Table, field dataset.PriceField) (map[period.Period][]float64, map[period.Period]int) {
	values := make(map[period.Period][]float64)
	counts := make(map[period.Period]int)

	table.Each(func(tx *dataset.Transaction) {
		counts[tx.Period]++
		if p := tx.Price(field); p.Valid {
			values[tx.Period] = append(values[tx.Period], p.Value)
		}
	})

	return values, counts
}

// MedianByPeriod returns one median per period present in the table, ascending
func MedianByPeriod(table *dataset.Table, field dataset.PriceField) []PeriodStat {
	values, counts := prices(table, field)

	out := make([]PeriodStat, 0, len(counts))
	for _, p := range table.Periods() {
		out = append(out, PeriodStat{
			Period: p,
			Value:  Median(values[p]),
			Count:  counts[p],
		})
	}

	return out
}

// MedianIn returns the median of field over the rows in period p
func MedianIn(table *dataset.Table, field dataset.PriceField, p period.Period) *float64 {
	var values []float64
	table.Each(func(tx *dataset.Transaction) {
		if tx.Period != p {
			return
		}
		if price := tx.Price(field); price.Valid {
			values = append(values, price.Value)
		}
	})
	return Median(values)
}

// MedianByPeriodAndFacet groups by facet value and then by period. Facet
// values come in the given order; rows whose facet is null are skipped. Each
// series covers exactly the periods in which its value occurs.
func MedianByPeriodAndFacet(table *dataset.Table, field dataset.PriceField, facet dataset.Facet, order []string) []FacetStat {
	groups := make(map[string][]dataset.Transaction)
	table.Each(func(tx *dataset.Transaction) {
		if v := tx.Facet(facet); v != "" {
			groups[v] = append(groups[v], *tx)
		}
	})

	out := make([]FacetStat, 0, len(groups))
	for _, v := range orderKeys(groups, order) {
		out = append(out, FacetStat{
			Value:  v,
			Series: MedianByPeriod(dataset.NewTable(groups[v]), field),
		})
	}

	return out
}

// Shares returns, for each of periods, every observed facet value's share of
// the period total. Within a period with a non-zero total the percentages sum
// to 100; a period with a zero total reports 0 for every value. Facet values
// come in the given order, then sorted. Rows with a null facet are skipped.
func Shares(table *dataset.Table, facet dataset.Facet, mode ShareMode, periods []period.Period, order []string) []Share {
	type key struct {
		p period.Period
		v string
	}

	amounts := make(map[key]float64)
	totals := make(map[period.Period]float64)
	observed := make(map[string][]dataset.Transaction)

	want := make(map[period.Period]struct{}, len(periods))
	for _, p := range periods {
		want[p] = struct{}{}
	}

	table.Each(func(tx *dataset.Transaction) {
		if _, ok := want[tx.Period]; !ok {
			return
		}
		v := tx.Facet(facet)
		if v == "" {
			return
		}

		var amount float64
		switch mode {
		case ShareSum:
			if !tx.SalePrice.Valid {
				return
			}
			amount = tx.SalePrice.Value
		default:
			amount = 1
		}

		amounts[key{tx.Period, v}] += amount
		totals[tx.Period] += amount
		observed[v] = nil
	})

	values := orderKeys(observed, order)
	out := make([]Share, 0, len(periods)*len(values))

	for _, p := range periods {
		total := totals[p]
		for _, v := range values {
			amount := amounts[key{p, v}]

			var pct float64
			if total != 0 {
				pct = amount / total * 100
			}

			out = append(out, Share{
				Period:  p,
				Value:   v,
				Amount:  amount,
				Total:   total,
				Percent: pct,
			})
		}
	}

	return out
}

// LowSample reports whether the table holds fewer than threshold rows in period p
func LowSample(table *dataset.Table, p period.Period, threshold int) bool {
	return table.CountIn(p) < threshold
}

// orderKeys returns the keys of m, first in the given order then sorted
func orderKeys(m map[string][]dataset.Transaction, order []string) []string {
	out := make([]string, 0, len(m))
	placed := make(map[string]struct{}, len(order))

	for _, v := range order {
		if _, ok := m[v]; ok {
			if _, dup := placed[v]; !dup {
				out = append(out, v)
				placed[v] = struct{}{}
			}
		}
	}

	rest := make([]string, 0, len(m))
	for v := range m {
		if _, ok := placed[v]; !ok {
			rest = append(rest, v)
		}
	}
	sort.Strings(rest)

	return append(out, rest...)
}
