// Package filter narrows a transaction table down to a facet selection
package filter

import (
	"errors"
	"fmt"
	"slices"

	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
)

// Total is the selection value that imposes no constraint on a facet
const Total = "Total"

// ErrUnknownValue is returned when a selection names a value the dataset does not contain
var ErrUnknownValue = errors.New("unknown facet value")

// Selection holds zero or one value per facet. Empty or Total means unconstrained.
type Selection struct {
	Category      string `json:"category"`
	AgeBucket     string `json:"age_bucket"`
	MileageBucket string `json:"mileage_bucket"`
	Region        string `json:"region"`
}

// Value returns the raw selection value for a facet
func (s Selection) Value(f dataset.Facet) string {
	switch f {
	case dataset.FacetCategory:
		return s.Category
	case dataset.FacetAgeBucket:
		return s.AgeBucket
	case dataset.FacetMileageBucket:
		return s.MileageBucket
	case dataset.FacetRegion:
		return s.Region
	default:
		return ""
	}
}

// With returns a copy of the selection with facet f set to value
func (s Selection) With(f dataset.Facet, value string) Selection {
	switch f {
	case dataset.FacetCategory:
		s.Category = value
	case dataset.FacetAgeBucket:
		s.AgeBucket = value
	case dataset.FacetMileageBucket:
		s.MileageBucket = value
	case dataset.FacetRegion:
		s.Region = value
	}
	return s
}

// Constrained reports whether facet f carries a concrete value
func (s Selection) Constrained(f dataset.Facet) bool {
	v := s.Value(f)
	return v != "" && v != Total
}

// Active returns the constrained facets in canonical order
func (s Selection) Active() []dataset.Facet {
	active := make([]dataset.Facet, 0, len(dataset.AllFacets))
	for _, f := range dataset.AllFacets {
		if s.Constrained(f) {
			active = append(active, f)
		}
	}
	return active
}

// Validate checks that every constrained value exists in the given facet lists
func (s Selection) Validate(facets map[dataset.Facet][]string) error {
	for _, f := range s.Active() {
		if !slices.Contains(facets[f], s.Value(f)) {
			return fmt.Errorf("%w: %s=%q", ErrUnknownValue, f, s.Value(f))
		}
	}
	return nil
}

// Apply returns the rows of table matching every constrained facet by exact
// value. A row whose value is null never matches a constrained facet. The
// result may be empty; the input table is not modified.
func Apply(table *dataset.Table, sel Selection) *dataset.Table {
	active := sel.Active()
	if len(active) == 0 {
		return table.Where(func(*dataset.Transaction) bool { return true })
	}

	want := make([]string, len(active))
	for i, f := range active {
		want[i] = sel.Value(f)
	}

	return table.Where(func(tx *dataset.Transaction) bool {
		for i, f := range active {
			if tx.Facet(f) != want[i] {
				return false
			}
		}
		return true
	})
}
