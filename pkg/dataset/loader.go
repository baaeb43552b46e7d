package dataset

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/caravan-insights/priceanalyzer/pkg/period"
	"github.com/sirupsen/logrus"
)

// Dataset is the process-wide, read-only result of a load
type Dataset struct {
	table  *Table
	facets map[Facet][]string
	stats  LoadStats
}

// LoadStats summarises what happened during a load
type LoadStats struct {
	Source           string `json:"source"`
	Rows             int    `json:"rows"`
	ExcludedRows     int    `json:"excluded_rows"`
	NullCategoryRows int    `json:"null_category_rows"`
}

// NewDataset wraps an already built table. Facet values are ordered by
// ageBuckets and mileageBuckets where given, otherwise lexically.
func NewDataset(table *Table, ageBuckets, mileageBuckets []string) *Dataset {
	return &Dataset{
		table:  table,
		facets: facetValues(table, ageBuckets, mileageBuckets),
		stats:  LoadStats{Source: "memory", Rows: table.Len()},
	}
}

// Table returns the full transaction table
func (d *Dataset) Table() *Table {
	return d.table
}

// Stats returns load statistics
func (d *Dataset) Stats() LoadStats {
	return d.stats
}

// FacetValues returns the distinct non-null values of a facet in display order
func (d *Dataset) FacetValues(f Facet) []string {
	return append([]string(nil), d.facets[f]...)
}

// Facets returns a copy of all facet value lists
func (d *Dataset) Facets() map[Facet][]string {
	out := make(map[Facet][]string, len(d.facets))
	for f, values := range d.facets {
		out[f] = append([]string(nil), values...)
	}
	return out
}

// Loader turns raw records into a Dataset
type Loader struct {
	cfg *Config
	log logrus.FieldLogger
}

// NewLoader creates a new loader
func NewLoader(log logrus.FieldLogger, cfg *Config) *Loader {
	return &Loader{
		cfg: cfg,
		log: log.WithField("component", "dataset.loader"),
	}
}

// Load reads the source and builds the dataset. Any malformed date or number,
// or a missing required column, fails the whole load.
func (l *Loader) Load(ctx context.Context, src Source) (*Dataset, error) {
	sheets, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(l.cfg.ExcludeCategories))
	for _, c := range l.cfg.ExcludeCategories {
		excluded[c] = struct{}{}
	}

	stats := LoadStats{Source: src.Name()}
	rows := make([]Transaction, 0)

	for _, sheet := range sheets {
		idx, err := l.columnIndex(sheet)
		if err != nil {
			return nil, err
		}

		for i, record := range sheet.Rows {
			if isBlank(record) {
				continue
			}

			line := i + 2 // header is line 1

			category := idx.value(record, idx.category)
			if category == "" {
				stats.NullCategoryRows++
				continue
			}
			if _, drop := excluded[category]; drop {
				stats.ExcludedRows++
				continue
			}

			tx, err := l.parseRow(record, idx)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", sheet.Origin, line, err)
			}

			rows = append(rows, tx)
		}
	}

	stats.Rows = len(rows)
	table := NewTable(rows)

	ds := &Dataset{
		table:  table,
		facets: facetValues(table, l.cfg.AgeBuckets, l.cfg.MileageBuckets),
		stats:  stats,
	}

	l.log.WithFields(logrus.Fields{
		"source":        stats.Source,
		"rows":          stats.Rows,
		"excluded_rows": stats.ExcludedRows,
		"null_category": stats.NullCategoryRows,
		"periods":       len(table.Periods()),
	}).Info("Dataset loaded")

	return ds, nil
}

type columnIndex struct {
	saleDate, salePrice, askingPrice, category, ageBucket, mileageBucket, region int
}

func (c columnIndex) value(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (l *Loader) columnIndex(sheet Records) (columnIndex, error) {
	positions := make(map[string]int, len(sheet.Header))
	for i, name := range sheet.Header {
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	for _, required := range l.cfg.Columns.requiredColumns() {
		if _, ok := positions[required]; !ok {
			return columnIndex{}, fmt.Errorf("%w: %q in %s", ErrMissingColumn, required, sheet.Origin)
		}
	}

	lookup := func(name string) int {
		if name == "" {
			return -1
		}
		if i, ok := positions[name]; ok {
			return i
		}
		return -1
	}

	return columnIndex{
		saleDate:      lookup(l.cfg.Columns.SaleDate),
		salePrice:     lookup(l.cfg.Columns.SalePrice),
		askingPrice:   lookup(l.cfg.Columns.AskingPrice),
		category:      lookup(l.cfg.Columns.Category),
		ageBucket:     lookup(l.cfg.Columns.AgeBucket),
		mileageBucket: lookup(l.cfg.Columns.MileageBucket),
		region:        lookup(l.cfg.Columns.Region),
	}, nil
}

func (l *Loader) parseRow(record []string, idx columnIndex) (Transaction, error) {
	saleDate, err := l.parseDate(idx.value(record, idx.saleDate))
	if err != nil {
		return Transaction{}, err
	}

	salePrice, err := l.parsePrice(idx.value(record, idx.salePrice))
	if err != nil {
		return Transaction{}, err
	}

	askingPrice, err := l.parsePrice(idx.value(record, idx.askingPrice))
	if err != nil {
		return Transaction{}, err
	}

	return Transaction{
		SaleDate:      saleDate,
		SalePrice:     salePrice,
		AskingPrice:   askingPrice,
		Category:      idx.value(record, idx.category),
		AgeBucket:     idx.value(record, idx.ageBucket),
		MileageBucket: idx.value(record, idx.mileageBucket),
		Region:        idx.value(record, idx.region),
		Period:        period.QuarterOf(saleDate),
	}, nil
}

func (l *Loader) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}

	for _, layout := range l.cfg.DateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

func (l *Loader) parsePrice(raw string) (Price, error) {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "€"))
	switch strings.ToLower(cleaned) {
	case "", "nan", "null", "na", "n/a":
		return Price{}, nil
	}

	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if l.cfg.DecimalComma {
		cleaned = normaliseDecimalComma(cleaned)
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return Price{}, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}

	return NewPrice(v), nil
}

// groupedThousands matches "45.000" or "1.234.567", with "." as thousands separator
var groupedThousands = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+$`) //nolint:gochecknoglobals // Compiled once

// normaliseDecimalComma rewrites a decimal-comma number for ParseFloat. A "."
// is a thousands separator only next to a "," or in grouped form; otherwise
// the value is already a plain decimal such as "1234.5".
func normaliseDecimalComma(s string) string {
	if strings.Contains(s, ",") || groupedThousands.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", ".")
	}
	return s
}

func facetValues(table *Table, ageBuckets, mileageBuckets []string) map[Facet][]string {
	seen := make(map[Facet]map[string]struct{}, len(AllFacets))
	for _, f := range AllFacets {
		seen[f] = make(map[string]struct{})
	}

	table.Each(func(tx *Transaction) {
		for _, f := range AllFacets {
			if v := tx.Facet(f); v != "" {
				seen[f][v] = struct{}{}
			}
		}
	})

	out := make(map[Facet][]string, len(AllFacets))
	for _, f := range AllFacets {
		var order []string
		switch f {
		case FacetAgeBucket:
			order = ageBuckets
		case FacetMileageBucket:
			order = mileageBuckets
		}
		out[f] = orderedValues(seen[f], order)
	}

	return out
}

// orderedValues lists the observed values, first in the configured order and
// then any remaining values sorted lexically
func orderedValues(observed map[string]struct{}, order []string) []string {
	out := make([]string, 0, len(observed))
	placed := make(map[string]struct{}, len(order))

	for _, v := range order {
		if _, ok := observed[v]; ok {
			out = append(out, v)
			placed[v] = struct{}{}
		}
	}

	rest := make([]string, 0, len(observed)-len(out))
	for v := range observed {
		if _, ok := placed[v]; !ok {
			rest = append(rest, v)
		}
	}
	sort.Strings(rest)

	return append(out, rest...)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
