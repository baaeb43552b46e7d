package format

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Define static errors
var (
	ErrLocaleRequired = errors.New("locale is required")
)

// Config controls locale and display texts
type Config struct {
	Locale      string `yaml:"locale" default:"de"`
	Currency    string `yaml:"currency" default:"€"`
	Unavailable string `yaml:"unavailable" default:"Data not available"`
	Notice      string `yaml:"notice" default:"Hinweis: Für das letzte Quartal liegen uns zu wenige Daten vor. Bitte wählen Sie weniger Parameter."`

	Titles TitlesConfig `yaml:"titles"`
	Colors ColorsConfig `yaml:"colors"`
}

// TitlesConfig holds the text/template sources of tile and chart titles.
// Templates see .current, .against, .first and .last as period labels and
// may use sprig functions.
type TitlesConfig struct {
	CurrentMedian string `yaml:"currentMedian" default:"Median-Verkaufspreis ({{ .current }}):"`
	YoYDelta      string `yaml:"yoyDelta" default:"Proz. Differenz (vs. {{ .against }}):"`
	QoQDelta      string `yaml:"qoqDelta" default:"Proz. Differenz (vs. {{ .against }}):"`
	PriceGap      string `yaml:"priceGap" default:"Ratio (Angebots- zu Verkaufspreis):"`
	PriceChart    string `yaml:"priceChart" default:"Preisentwicklung seit {{ .first | default \"-\" }}"`
}

// ColorsConfig maps KPI classes to colours
type ColorsConfig struct {
	Negative string `yaml:"negative" default:"#ff0000"`
	Positive string `yaml:"positive" default:"#008000"`
	Neutral  string `yaml:"neutral" default:"#000000"`
}

// Validate validates the format configuration
func (c *Config) Validate() error {
	if c.Locale == "" {
		return ErrLocaleRequired
	}

	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", c.Locale, err)
	}

	return nil
}
