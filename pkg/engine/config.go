// Package engine wires the dataset, pipeline and HTTP services together
package engine

import (
	"errors"
	"fmt"

	"github.com/caravan-insights/priceanalyzer/pkg/api"
	"github.com/caravan-insights/priceanalyzer/pkg/chart"
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/format"
	"github.com/caravan-insights/priceanalyzer/pkg/pipeline"
)

var (
	// ErrMetricsAddrRequired is returned when no metrics address is configured
	ErrMetricsAddrRequired = errors.New("metrics address is required")
)

// Config represents the complete engine configuration
type Config struct {
	// Core settings
	Logging         string `yaml:"logging" default:"info" validate:"oneof=panic fatal warn info debug trace"`
	MetricsAddr     string `yaml:"metricsAddr" default:":9091"`
	HealthCheckAddr string `yaml:"healthCheckAddr"`
	PProfAddr       string `yaml:"pprofAddr"`

	Dataset  dataset.Config  `yaml:"dataset"`
	Pipeline pipeline.Config `yaml:"pipeline"`
	Format   format.Config   `yaml:"format"`
	Chart    chart.Config    `yaml:"chart"`

	// API service configuration
	API api.Config `yaml:"api"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MetricsAddr == "" {
		return ErrMetricsAddrRequired
	}

	if err := c.Dataset.Validate(); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	if err := c.Format.Validate(); err != nil {
		return fmt.Errorf("format: %w", err)
	}

	if err := c.Chart.Validate(); err != nil {
		return fmt.Errorf("chart: %w", err)
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
