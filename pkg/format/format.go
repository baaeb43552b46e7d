// Package format renders pipeline output as locale-aware display text
package format

import (
	"errors"
	"fmt"
	"math"

	"github.com/caravan-insights/priceanalyzer/pkg/kpi"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrUnknownTemplate is returned when rendering a template that was never registered
var ErrUnknownTemplate = errors.New("unknown template")

// Template names
const (
	TitleCurrentMedian = "current_median"
	TitleYoYDelta      = "yoy_delta_pct"
	TitleQoQDelta      = "qoq_delta_pct"
	TitlePriceGap      = "price_gap_pct"
	TitlePriceChart    = "price_chart"
)

// Tile is one rendered KPI
type Tile struct {
	Key   string    `json:"key"`
	Title string    `json:"title"`
	Text  string    `json:"text"`
	Color string    `json:"color"`
	Class kpi.Class `json:"class"`
}

// Formatter formats numbers and titles for one locale. It is safe for
// concurrent use once created.
type Formatter struct {
	cfg       Config
	printer   *message.Printer
	templates *TemplateEngine
}

// New creates a formatter and parses every title template
func New(cfg *Config) (*Formatter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tag := language.MustParse(cfg.Locale)

	engine := NewTemplateEngine()
	titles := map[string]string{
		TitleCurrentMedian: cfg.Titles.CurrentMedian,
		TitleYoYDelta:      cfg.Titles.YoYDelta,
		TitleQoQDelta:      cfg.Titles.QoQDelta,
		TitlePriceGap:      cfg.Titles.PriceGap,
		TitlePriceChart:    cfg.Titles.PriceChart,
	}
	for name, content := range titles {
		if err := engine.Register(name, content); err != nil {
			return nil, err
		}
	}

	return &Formatter{
		cfg:       *cfg,
		printer:   message.NewPrinter(tag),
		templates: engine,
	}, nil
}

// Price formats a price as a whole currency amount, e.g. "43.000 €"
func (f *Formatter) Price(v *float64) string {
	if v == nil {
		return f.cfg.Unavailable
	}
	return f.printer.Sprintf("%d %s", int64(math.Round(*v)), f.cfg.Currency)
}

// Percent formats a percentage with two decimals, e.g. "-14,00%"
func (f *Formatter) Percent(v *float64) string {
	if v == nil {
		return f.cfg.Unavailable
	}
	return f.printer.Sprintf("%.2f%%", *v)
}

// Count formats the filtered row count label, e.g. "n = 1.234"
func (f *Formatter) Count(n int) string {
	return f.printer.Sprintf("n = %d", n)
}

// Thousands formats an axis value in thousands, e.g. 50000 as "50"
func (f *Formatter) Thousands(v float64) string {
	return f.printer.Sprintf("%d", int64(math.Round(v/1000)))
}

// Color returns the configured colour for a class
func (f *Formatter) Color(c kpi.Class) string {
	switch c {
	case kpi.ClassNegative:
		return f.cfg.Colors.Negative
	case kpi.ClassPositive:
		return f.cfg.Colors.Positive
	default:
		return f.cfg.Colors.Neutral
	}
}

// Notice returns the low-sample advisory, or "" when the sample is sufficient
func (f *Formatter) Notice(lowSample bool) string {
	if !lowSample {
		return ""
	}
	return f.cfg.Notice
}

// Tiles renders the four KPI tiles in display order
func (f *Formatter) Tiles(set kpi.Set) ([]Tile, error) {
	specs := []struct {
		key    string
		metric kpi.Metric
		text   func(*float64) string
	}{
		{TitleCurrentMedian, set.CurrentMedian, f.Price},
		{TitleYoYDelta, set.YoYDeltaPct, f.Percent},
		{TitleQoQDelta, set.QoQDeltaPct, f.Percent},
		{TitlePriceGap, set.PriceGapPct, f.Percent},
	}

	tiles := make([]Tile, 0, len(specs))
	for _, s := range specs {
		vars := map[string]interface{}{
			"current": set.Period.Label(),
			"against": "",
		}
		if s.metric.Against != nil {
			vars["against"] = s.metric.Against.Label()
		}

		title, err := f.templates.Render(s.key, vars)
		if err != nil {
			return nil, err
		}

		class := s.metric.Class
		if class == "" {
			class = kpi.Classify(s.metric.Value)
		}

		tiles = append(tiles, Tile{
			Key:   s.key,
			Title: title,
			Text:  s.text(s.metric.Value),
			Color: f.Color(class),
			Class: class,
		})
	}

	return tiles, nil
}

// PriceChartTitle renders the price chart title for a window of periods
func (f *Formatter) PriceChartTitle(window []period.Period) (string, error) {
	vars := map[string]interface{}{}
	if len(window) > 0 {
		vars["first"] = window[0].Label()
		vars["last"] = window[len(window)-1].Label()
	}

	title, err := f.templates.Render(TitlePriceChart, vars)
	if err != nil {
		return "", fmt.Errorf("failed to render price chart title: %w", err)
	}

	return title, nil
}
