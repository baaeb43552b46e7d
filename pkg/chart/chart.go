// Package chart renders dashboard series as PNG images
package chart

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/caravan-insights/priceanalyzer/pkg/aggregate"
	"github.com/caravan-insights/priceanalyzer/pkg/format"
	"github.com/caravan-insights/priceanalyzer/pkg/observability"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
	"github.com/caravan-insights/priceanalyzer/pkg/pipeline"
	"github.com/caravan-insights/priceanalyzer/pkg/series"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Define static errors
var (
	ErrNoData       = errors.New("no data to chart")
	ErrEmptyPalette = errors.New("palette must not be empty")
	ErrInvalidSize  = errors.New("chart width and height must be positive")
)

// Config controls chart size and colours
type Config struct {
	Width   int      `yaml:"width" default:"900"`
	Height  int      `yaml:"height" default:"400"`
	Palette []string `yaml:"palette" default:"[\"#F97A1F\",\"#C91D42\",\"#1DC9A4\",\"#141F52\"]"`
}

// Validate validates the chart configuration
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return ErrInvalidSize
	}
	if len(c.Palette) == 0 {
		return ErrEmptyPalette
	}
	return nil
}

// Renderer draws charts from pipeline output
type Renderer struct {
	cfg       Config
	formatter *format.Formatter
	palette   []drawing.Color
}

// NewRenderer creates a renderer
func NewRenderer(cfg *Config, f *format.Formatter) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	palette := make([]drawing.Color, len(cfg.Palette))
	for i, hex := range cfg.Palette {
		palette[i] = drawing.ColorFromHex(trimHash(hex))
	}

	return &Renderer{
		cfg:       *cfg,
		formatter: f,
		palette:   palette,
	}, nil
}

// Price renders the windowed median price line
func (r *Renderer) Price(dash *pipeline.Dashboard) ([]byte, error) {
	title, err := r.formatter.PriceChartTitle(dash.Periods)
	if err != nil {
		return nil, err
	}

	line, ok := r.line("Median", dash.Price.Points, r.palette[0])
	if !ok {
		observability.RecordChartRender("price", "empty")
		return nil, ErrNoData
	}

	graph := r.lineChart(title, dash.Periods, dash.Price.Axis, []chart.Series{line})
	return r.render("price", graph)
}

// FacetMedians renders one median line per facet value
func (r *Renderer) FacetMedians(fs pipeline.FacetSeries, window []period.Period) ([]byte, error) {
	lines := make([]chart.Series, 0, len(fs.Values))
	for i, v := range fs.Values {
		if line, ok := r.line(v.Value, v.Series, r.color(i)); ok {
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		observability.RecordChartRender("facet_medians", "empty")
		return nil, ErrNoData
	}

	graph := r.lineChart(string(fs.Facet), window, fs.Axis, lines)
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	return r.render("facet_medians", graph)
}

// Shares renders a stacked percentage bar per period
func (r *Renderer) Shares(ss pipeline.ShareSeries, window []period.Period) ([]byte, error) {
	if len(ss.Shares) == 0 {
		observability.RecordChartRender("shares", "empty")
		return nil, ErrNoData
	}

	colors := make(map[string]drawing.Color)
	byPeriod := make(map[period.Period][]aggregate.Share, len(window))
	for _, s := range ss.Shares {
		if _, ok := colors[s.Value]; !ok {
			colors[s.Value] = r.color(len(colors))
		}
		byPeriod[s.Period] = append(byPeriod[s.Period], s)
	}

	bars := make([]chart.StackedBar, 0, len(window))
	for _, p := range window {
		values := make([]chart.Value, 0, len(byPeriod[p]))
		for _, s := range byPeriod[p] {
			if s.Percent <= 0 {
				continue
			}
			values = append(values, chart.Value{
				Label: s.Value,
				Value: s.Percent,
				Style: chart.Style{FillColor: colors[s.Value], StrokeColor: colors[s.Value]},
			})
		}
		if len(values) == 0 {
			continue
		}
		bars = append(bars, chart.StackedBar{Name: p.Label(), Values: values})
	}

	if len(bars) == 0 {
		observability.RecordChartRender("shares", "empty")
		return nil, ErrNoData
	}

	graph := chart.StackedBarChart{
		Title:      fmt.Sprintf("%s (%s)", ss.Facet, ss.Mode),
		Width:      r.cfg.Width,
		Height:     r.cfg.Height,
		BarSpacing: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		observability.RecordChartRender("shares", "failed")
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	observability.RecordChartRender("shares", "success")
	return buf.Bytes(), nil
}

// line builds a series over window indexes, skipping undefined points
func (r *Renderer) line(name string, points []aggregate.PeriodStat, color drawing.Color) (chart.ContinuousSeries, bool) {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))

	for i, pt := range points {
		if pt.Value == nil {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, *pt.Value)
	}

	if len(xs) == 0 {
		return chart.ContinuousSeries{}, false
	}

	return chart.ContinuousSeries{
		Name: name,
		Style: chart.Style{
			StrokeColor: color,
			StrokeWidth: 2.5,
			DotColor:    color,
			DotWidth:    4,
		},
		XValues: xs,
		YValues: ys,
	}, true
}

func (r *Renderer) lineChart(title string, window []period.Period, axis series.Axis, lines []chart.Series) chart.Chart {
	xTicks := make([]chart.Tick, len(window))
	for i, p := range window {
		xTicks[i] = chart.Tick{Value: float64(i), Label: p.Label()}
	}

	yTicks := make([]chart.Tick, len(axis.Ticks))
	for i, v := range axis.Ticks {
		yTicks[i] = chart.Tick{Value: v, Label: r.formatter.Thousands(v)}
	}

	return chart.Chart{
		Title:  title,
		Width:  r.cfg.Width,
		Height: r.cfg.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(window)) - 0.5},
			Ticks: xTicks,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: axis.Min, Max: axis.Max},
			Ticks: yTicks,
		},
		Series: lines,
	}
}

func (r *Renderer) render(name string, graph chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		observability.RecordChartRender(name, "failed")
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	observability.RecordChartRender(name, "success")
	return buf.Bytes(), nil
}

func (r *Renderer) color(i int) drawing.Color {
	return r.palette[i%len(r.palette)]
}

func trimHash(hex string) string {
	if len(hex) > 0 && hex[0] == '#' {
		return hex[1:]
	}
	return hex
}
