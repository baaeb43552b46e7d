package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/caravan-insights/priceanalyzer/pkg/engine"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads the engine configuration from a YAML file on top of the
// struct defaults. A missing file leaves the defaults in place.
func LoadConfig(path string) (*engine.Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	config := &engine.Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
