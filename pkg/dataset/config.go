package dataset

import (
	"fmt"
	"unicode/utf8"

	"github.com/caravan-insights/priceanalyzer/pkg/redis"
)

// Source types
const (
	SourceTypeFile  = "file"
	SourceTypeRedis = "redis"
)

// Config describes where the dataset lives and how its columns are interpreted
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Columns ColumnsConfig `yaml:"columns"`

	// DateLayouts are tried in order against the sale-date column
	DateLayouts []string `yaml:"dateLayouts" default:"[\"2006-01-02\",\"2006-01-02 15:04:05\",\"2006-01-02T15:04:05\",\"2006-01-02T15:04:05Z07:00\",\"02.01.2006\",\"01/02/2006\"]"`
	// DecimalComma treats "," as decimal separator and "." as thousands separator
	DecimalComma bool `yaml:"decimalComma" default:"false"`

	ExcludeCategories []string `yaml:"excludeCategories" default:"[\"Bus\",\"Wohnwagen\"]"`
	// AgeBuckets is the display order of the age bracket enumeration
	AgeBuckets []string `yaml:"ageBuckets" default:"[\"Bis 2 Jahre\",\"2 - 4 Jahre\",\"4 - 6 Jahre\",\"6 Jahre und älter\"]"`
	// MileageBuckets is the display order of the mileage bracket enumeration
	MileageBuckets []string `yaml:"mileageBuckets,omitempty"`
}

// SourceConfig selects and configures the tabular source
type SourceConfig struct {
	Type string `yaml:"type" default:"file" validate:"oneof=file redis"`

	// File source
	Paths     []string `yaml:"paths" default:"[\"pricedata.csv\"]"`
	Delimiter string   `yaml:"delimiter" default:","`
	Sheet     string   `yaml:"sheet,omitempty"`

	// Redis source
	Redis redis.Config `yaml:"redis"`
	Key   string       `yaml:"key" default:"dataset"`
}

// ColumnsConfig maps logical fields to source column names. Optional columns
// may be left empty or be absent from the source.
type ColumnsConfig struct {
	SaleDate      string `yaml:"saleDate" default:"Verkauf in"`
	SalePrice     string `yaml:"salePrice" default:"Verkaufspreis"`
	AskingPrice   string `yaml:"askingPrice" default:"Wunschpreis"`
	Category      string `yaml:"category" default:"Kategorie"`
	AgeBucket     string `yaml:"ageBucket" default:"fahrzeugalter_cat"`
	MileageBucket string `yaml:"mileageBucket" default:"km_cat"`
	Region        string `yaml:"region" default:"region"`
}

// Validate validates the dataset configuration
func (c *Config) Validate() error {
	if c.Columns.SaleDate == "" {
		return ErrSaleDateColumn
	}
	if c.Columns.Category == "" {
		return ErrCategoryColumn
	}
	if len(c.DateLayouts) == 0 {
		return ErrNoDateLayouts
	}

	return c.Source.Validate()
}

// Validate validates the source configuration
func (c *SourceConfig) Validate() error {
	switch c.Type {
	case SourceTypeFile:
		if len(c.Paths) == 0 {
			return ErrNoPaths
		}
	case SourceTypeRedis:
		if c.Key == "" {
			return ErrRedisKeyRequired
		}
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("invalid redis configuration: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedSource, c.Type)
	}

	if c.Delimiter != "" && utf8.RuneCountInString(c.Delimiter) != 1 {
		return ErrInvalidDelimiter
	}

	return nil
}

// Comma returns the CSV delimiter rune
func (c *SourceConfig) Comma() rune {
	if c.Delimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// requiredColumns returns the columns whose absence aborts the load
func (c *ColumnsConfig) requiredColumns() []string {
	cols := []string{c.SaleDate, c.SalePrice, c.AskingPrice, c.Category, c.AgeBucket}
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		if col != "" {
			out = append(out, col)
		}
	}
	return out
}
