package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
	"github.com/stretchr/testify/require"
)

// DefaultHeader is the column header of the original price export
//
//nolint:gochecknoglobals // Test fixture
var DefaultHeader = []string{
	"Verkauf in", "Verkaufspreis", "Wunschpreis", "Kategorie", "fahrzeugalter_cat", "km_cat", "region",
}

// WriteCSV writes header and rows to a CSV file in a temp directory and returns its path
func WriteCSV(t *testing.T, name string, header []string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))

	return path
}

// TxOption customises a fixture transaction
type TxOption func(*dataset.Transaction)

// WithCategory sets the category
func WithCategory(c string) TxOption {
	return func(tx *dataset.Transaction) { tx.Category = c }
}

// WithAge sets the age bucket
func WithAge(a string) TxOption {
	return func(tx *dataset.Transaction) { tx.AgeBucket = a }
}

// WithMileage sets the mileage bucket
func WithMileage(m string) TxOption {
	return func(tx *dataset.Transaction) { tx.MileageBucket = m }
}

// WithRegion sets the region
func WithRegion(r string) TxOption {
	return func(tx *dataset.Transaction) { tx.Region = r }
}

// WithAsking sets the asking price
func WithAsking(v float64) TxOption {
	return func(tx *dataset.Transaction) { tx.AskingPrice = dataset.NewPrice(v) }
}

// WithoutSalePrice nulls the sale price
func WithoutSalePrice() TxOption {
	return func(tx *dataset.Transaction) { tx.SalePrice = dataset.Price{} }
}

// Tx builds a transaction sold on date (YYYY-MM-DD) in category "A"
func Tx(t testing.TB, date string, salePrice float64, opts ...TxOption) dataset.Transaction {
	t.Helper()

	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)

	tx := dataset.Transaction{
		SaleDate:  d,
		SalePrice: dataset.NewPrice(salePrice),
		Category:  "A",
		AgeBucket: "Bis 2 Jahre",
		Period:    period.QuarterOf(d),
	}
	for _, opt := range opts {
		opt(&tx)
	}

	return tx
}

// ScenarioMedians are the category "A" quarterly medians of ScenarioTable, 2022Q4 to 2023Q4
//
//nolint:gochecknoglobals // Test fixture
var ScenarioMedians = []float64{50000, 48000, 47000, 45000, 43000}

// ScenarioTable builds five quarters (2022Q4 to 2023Q4) of category "A" sales
// whose medians are ScenarioMedians. Each quarter holds three "A" sales at
// median-1000, median and median+1000, each asking 2000 above its sale price,
// plus one category "B" sale at 90000 in "6 Jahre und älter".
func ScenarioTable(t testing.TB) *dataset.Table {
	t.Helper()

	dates := []string{"2022-11-15", "2023-02-15", "2023-05-15", "2023-08-15", "2023-11-15"}
	ages := []string{"Bis 2 Jahre", "2 - 4 Jahre", "Bis 2 Jahre"}

	rows := make([]dataset.Transaction, 0, len(dates)*4)
	for i, date := range dates {
		m := ScenarioMedians[i]
		for j, offset := range []float64{-1000, 0, 1000} {
			rows = append(rows, Tx(t, date, m+offset, WithAsking(m+offset+2000), WithAge(ages[j]), WithRegion("Nord")))
		}
		rows = append(rows, Tx(t, date, 90000, WithCategory("B"), WithAge("6 Jahre und älter"), WithRegion("Süd")))
	}

	return dataset.NewTable(rows)
}
