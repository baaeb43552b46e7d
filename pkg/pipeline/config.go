package pipeline

import (
	"errors"
	"fmt"

	"github.com/caravan-insights/priceanalyzer/pkg/aggregate"
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
	"github.com/caravan-insights/priceanalyzer/pkg/series"
)

// CurrentLatest resolves the current period to the latest one in the dataset
const CurrentLatest = "latest"

// Define static errors
var (
	ErrInvalidPeriods   = errors.New("periods must be positive")
	ErrInvalidThreshold = errors.New("lowSampleThreshold must not be negative")
	ErrNoPeriods        = errors.New("dataset contains no periods")
)

// Config parameterises a pipeline
type Config struct {
	// Periods is the number of trailing periods shown in every series
	Periods int `yaml:"periods" default:"5"`
	// LowSampleThreshold flags the current period when it holds fewer rows
	LowSampleThreshold int `yaml:"lowSampleThreshold" default:"10"`
	// CurrentPeriod is "latest" or a fixed quarter such as 2023Q4
	CurrentPeriod string `yaml:"currentPeriod" default:"latest"`

	ShareMode    string   `yaml:"shareMode" default:"count"`
	ShareFacets  []string `yaml:"shareFacets" default:"[\"category\",\"age_bucket\"]"`
	MedianFacets []string `yaml:"medianFacets" default:"[\"category\",\"age_bucket\"]"`

	Axis series.AxisConfig `yaml:"axis"`
}

// Validate validates the pipeline configuration
func (c *Config) Validate() error {
	if c.Periods <= 0 {
		return ErrInvalidPeriods
	}
	if c.LowSampleThreshold < 0 {
		return ErrInvalidThreshold
	}

	if c.CurrentPeriod != CurrentLatest {
		if _, err := period.Parse(c.CurrentPeriod); err != nil {
			return fmt.Errorf("invalid currentPeriod: %w", err)
		}
	}

	if _, err := aggregate.ParseShareMode(c.ShareMode); err != nil {
		return err
	}

	if _, err := parseFacets(c.ShareFacets); err != nil {
		return fmt.Errorf("invalid shareFacets: %w", err)
	}
	if _, err := parseFacets(c.MedianFacets); err != nil {
		return fmt.Errorf("invalid medianFacets: %w", err)
	}

	if err := c.Axis.Validate(); err != nil {
		return fmt.Errorf("invalid axis: %w", err)
	}

	return nil
}

func parseFacets(names []string) ([]dataset.Facet, error) {
	out := make([]dataset.Facet, 0, len(names))
	for _, name := range names {
		f, err := dataset.ParseFacet(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, name)
		}
		out = append(out, f)
	}
	return out, nil
}
