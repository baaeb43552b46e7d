package filter

import (
	"testing"

	"github.com/caravan-insights/priceanalyzer/internal/testutil"
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *dataset.Table {
	t.Helper()

	return dataset.NewTable([]dataset.Transaction{
		testutil.Tx(t, "2023-11-02", 43000, testutil.WithCategory("Kastenwagen"), testutil.WithAge("Bis 2 Jahre"), testutil.WithRegion("Nord")),
		testutil.Tx(t, "2023-11-03", 41000, testutil.WithCategory("Kastenwagen"), testutil.WithAge("2 - 4 Jahre")),
		testutil.Tx(t, "2023-08-03", 61000, testutil.WithCategory("Teilintegriert"), testutil.WithAge("Bis 2 Jahre"), testutil.WithRegion("Süd")),
		testutil.Tx(t, "2023-05-03", 38000, testutil.WithCategory("kastenwagen"), testutil.WithAge("Bis 2 Jahre"), testutil.WithRegion("Nord")),
	})
}

func TestApply(t *testing.T) {
	table := sampleTable(t)

	tests := []struct {
		name      string
		selection Selection
		want      []float64
	}{
		{
			name:      "empty selection keeps everything",
			selection: Selection{},
			want:      []float64{43000, 41000, 61000, 38000},
		},
		{
			name:      "all Total keeps everything",
			selection: Selection{Category: Total, AgeBucket: Total, MileageBucket: Total, Region: Total},
			want:      []float64{43000, 41000, 61000, 38000},
		},
		{
			name:      "exact match without case folding",
			selection: Selection{Category: "Kastenwagen"},
			want:      []float64{43000, 41000},
		},
		{
			name:      "conjunction across facets",
			selection: Selection{Category: "Kastenwagen", AgeBucket: "Bis 2 Jahre"},
			want:      []float64{43000},
		},
		{
			name:      "null region never matches",
			selection: Selection{Region: "Nord"},
			want:      []float64{43000, 38000},
		},
		{
			name:      "no match yields empty table",
			selection: Selection{Category: "Alkoven"},
			want:      []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(table, tt.selection)

			prices := make([]float64, 0, got.Len())
			got.Each(func(tx *dataset.Transaction) {
				prices = append(prices, tx.SalePrice.Value)
			})
			assert.Equal(t, tt.want, prices)
		})
	}

	assert.Equal(t, 4, table.Len(), "source table must be untouched")
}

func TestApply_AllTotalEqualsFullTable(t *testing.T) {
	table := testutil.ScenarioTable(t)
	got := Apply(table, Selection{Category: Total, AgeBucket: Total, MileageBucket: Total, Region: Total})

	require.Equal(t, table.Len(), got.Len())
	for i := 0; i < table.Len(); i++ {
		assert.Equal(t, table.At(i), got.At(i))
	}
	assert.Equal(t, table.Periods(), got.Periods())
}

func TestSelection_Active(t *testing.T) {
	sel := Selection{Region: "Nord", Category: "A", AgeBucket: Total}
	assert.Equal(t, []dataset.Facet{dataset.FacetCategory, dataset.FacetRegion}, sel.Active())
	assert.Empty(t, Selection{}.Active())
}

func TestSelection_With(t *testing.T) {
	sel := Selection{}.With(dataset.FacetMileageBucket, "a").With(dataset.FacetCategory, "B")
	assert.Equal(t, Selection{Category: "B", MileageBucket: "a"}, sel)
	assert.True(t, sel.Constrained(dataset.FacetMileageBucket))
	assert.False(t, sel.Constrained(dataset.FacetRegion))
}

func TestSelection_Validate(t *testing.T) {
	facets := map[dataset.Facet][]string{
		dataset.FacetCategory:  {"A", "B"},
		dataset.FacetAgeBucket: {"Bis 2 Jahre"},
	}

	require.NoError(t, Selection{}.Validate(facets))
	require.NoError(t, Selection{Category: "A", AgeBucket: Total}.Validate(facets))
	require.ErrorIs(t, Selection{Category: "C"}.Validate(facets), ErrUnknownValue)
	require.ErrorIs(t, Selection{Region: "Nord"}.Validate(facets), ErrUnknownValue)
}
