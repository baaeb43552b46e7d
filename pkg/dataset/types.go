// Package dataset loads vehicle-sale transactions into an immutable in-memory table
package dataset

import (
	"time"

	"github.com/caravan-insights/priceanalyzer/pkg/period"
)

// Facet is a categorical dimension used for filtering and grouping
type Facet string

const (
	// FacetCategory is the vehicle category
	FacetCategory Facet = "category"
	// FacetAgeBucket is the vehicle age bracket
	FacetAgeBucket Facet = "age_bucket"
	// FacetMileageBucket is the mileage bracket
	FacetMileageBucket Facet = "mileage_bucket"
	// FacetRegion is the sale region
	FacetRegion Facet = "region"
)

// AllFacets lists the facets in canonical order
//
//nolint:gochecknoglobals // Fixed enumeration
var AllFacets = []Facet{FacetCategory, FacetAgeBucket, FacetMileageBucket, FacetRegion}

// ParseFacet validates a facet name
func ParseFacet(s string) (Facet, error) {
	for _, f := range AllFacets {
		if string(f) == s {
			return f, nil
		}
	}
	return "", ErrUnknownFacet
}

// Price is a nullable currency amount
type Price struct {
	Value float64
	Valid bool
}

// NewPrice returns a valid price
func NewPrice(v float64) Price {
	return Price{Value: v, Valid: true}
}

// PriceField selects which price of a transaction a statistic is computed on
type PriceField int

const (
	// SalePrice is the realised sale price
	SalePrice PriceField = iota
	// AskingPrice is the originally listed price ("Wunschpreis")
	AskingPrice
)

// Transaction is one retained row of the dataset. Empty facet strings are null.
type Transaction struct {
	SaleDate      time.Time
	SalePrice     Price
	AskingPrice   Price
	Category      string
	AgeBucket     string
	MileageBucket string
	Region        string
	Period        period.Period
}

// Facet returns the transaction's value for the given facet
func (t *Transaction) Facet(f Facet) string {
	switch f {
	case FacetCategory:
		return t.Category
	case FacetAgeBucket:
		return t.AgeBucket
	case FacetMileageBucket:
		return t.MileageBucket
	case FacetRegion:
		return t.Region
	default:
		return ""
	}
}

// Price returns the requested price field
func (t *Transaction) Price(field PriceField) Price {
	if field == AskingPrice {
		return t.AskingPrice
	}
	return t.SalePrice
}

// Table is an immutable collection of transactions. Derived tables (e.g.
// filter results) are new values; a table is never modified after creation.
type Table struct {
	rows    []Transaction
	periods []period.Period
}

// NewTable builds a table from rows, taking ownership of the slice
func NewTable(rows []Transaction) *Table {
	ps := make([]period.Period, 0, len(rows))
	for i := range rows {
		ps = append(ps, rows[i].Period)
	}

	return &Table{
		rows:    rows,
		periods: period.Order(ps),
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// At returns a copy of the i-th row
func (t *Table) At(i int) Transaction {
	return t.rows[i]
}

// Each calls fn for every row in load order. fn receives a pointer into the
// table which must not be retained or written through.
func (t *Table) Each(fn func(*Transaction)) {
	if t == nil {
		return
	}
	for i := range t.rows {
		fn(&t.rows[i])
	}
}

// Where returns a new table holding the rows for which keep returns true
func (t *Table) Where(keep func(*Transaction) bool) *Table {
	out := make([]Transaction, 0)
	t.Each(func(tx *Transaction) {
		if keep(tx) {
			out = append(out, *tx)
		}
	})
	return NewTable(out)
}

// Periods returns the distinct periods present, ascending
func (t *Table) Periods() []period.Period {
	if t == nil {
		return []period.Period{}
	}
	return append([]period.Period(nil), t.periods...)
}

// CountIn returns the number of rows that fall in period p
func (t *Table) CountIn(p period.Period) int {
	n := 0
	t.Each(func(tx *Transaction) {
		if tx.Period == p {
			n++
		}
	})
	return n
}
