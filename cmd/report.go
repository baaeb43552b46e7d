package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/caravan-insights/priceanalyzer/pkg/chart"
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/engine"
	"github.com/caravan-insights/priceanalyzer/pkg/filter"
	"github.com/caravan-insights/priceanalyzer/pkg/format"
	"github.com/caravan-insights/priceanalyzer/pkg/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the dashboard pipeline once and print the result",
	Long: `Loads the dataset, applies the facet selection given by flags and prints
the KPI tiles, the price series and the facet shares. Omitted facets and the
value "Total" leave a facet unconstrained.`,
	PersistentPreRunE: quietByDefault,
	RunE:              runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("category", filter.Total, "vehicle category")
	reportCmd.Flags().String("age-bucket", filter.Total, "vehicle age bracket")
	reportCmd.Flags().String("mileage-bucket", filter.Total, "mileage bracket")
	reportCmd.Flags().String("region", filter.Total, "sales region")
	reportCmd.Flags().Bool("json", false, "print the dashboard as JSON")
	reportCmd.Flags().String("charts", "", "directory to write PNG charts to")
}

// quietByDefault lowers the log level to error unless --log-level was given
func quietByDefault(cmd *cobra.Command, _ []string) error {
	if !cmd.Flags().Changed("log-level") {
		logger.SetLevel(logrus.ErrorLevel)
	}
	return nil
}

func selectionFromFlags(cmd *cobra.Command) (filter.Selection, error) {
	flags := map[dataset.Facet]string{
		dataset.FacetCategory:      "category",
		dataset.FacetAgeBucket:     "age-bucket",
		dataset.FacetMileageBucket: "mileage-bucket",
		dataset.FacetRegion:        "region",
	}

	var sel filter.Selection
	for _, f := range dataset.AllFacets {
		v, err := cmd.Flags().GetString(flags[f])
		if err != nil {
			return filter.Selection{}, err
		}
		sel = sel.With(f, v)
	}

	return sel, nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	sel, err := selectionFromFlags(cmd)
	if err != nil {
		return err
	}

	ds, err := engine.LoadDataset(context.Background(), logger, &config.Dataset)
	if err != nil {
		return err
	}

	if err := sel.Validate(ds.Facets()); err != nil {
		return err
	}

	p, err := pipeline.New(ds, &config.Pipeline)
	if err != nil {
		return err
	}

	formatter, err := format.New(&config.Format)
	if err != nil {
		return err
	}

	dash, err := p.Run(sel)
	if err != nil {
		return err
	}

	if dir, _ := cmd.Flags().GetString("charts"); dir != "" {
		if err := writeCharts(dir, &config.Chart, formatter, dash); err != nil {
			return err
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(dash)
	}

	return writeReport(cmd.OutOrStdout(), formatter, dash)
}

// writeReport prints a dashboard as aligned text tables
func writeReport(out io.Writer, f *format.Formatter, dash *pipeline.Dashboard) error {
	tiles, err := f.Tiles(dash.KPIs)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "PERIOD\t%s\n", dash.CurrentPeriod.Label())
	_, _ = fmt.Fprintf(w, "ROWS\t%s\n", f.Count(dash.Rows))
	if notice := f.Notice(dash.LowSample); notice != "" {
		_, _ = fmt.Fprintf(w, "NOTICE\t%s\n", notice)
	}
	_, _ = fmt.Fprintln(w)

	for _, t := range tiles {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", t.Title, t.Text)
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "QUARTER\tMEDIAN\tCOUNT")
	for _, pt := range dash.Price.Points {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", pt.Period.Label(), f.Price(pt.Value), pt.Count)
	}

	for _, ss := range dash.Shares {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintf(w, "%s\tQUARTER\tSHARE\n", ss.Facet)
		for _, s := range ss.Shares {
			pct := s.Percent
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Value, s.Period.Label(), f.Percent(&pct))
		}
	}

	return w.Flush()
}

// writeCharts renders every chart of dash into dir. Charts without data are skipped.
func writeCharts(dir string, cfg *chart.Config, f *format.Formatter, dash *pipeline.Dashboard) error {
	r, err := chart.NewRenderer(cfg, f)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}

	charts := map[string]func() ([]byte, error){
		"price.png": func() ([]byte, error) { return r.Price(dash) },
	}
	for _, ss := range dash.Shares {
		charts["shares_"+string(ss.Facet)+".png"] = func() ([]byte, error) { return r.Shares(ss, dash.Periods) }
	}
	for _, fs := range dash.FacetMedians {
		charts["medians_"+string(fs.Facet)+".png"] = func() ([]byte, error) { return r.FacetMedians(fs, dash.Periods) }
	}

	for name, render := range charts {
		png, err := render()
		if err != nil {
			if errors.Is(err, chart.ErrNoData) {
				logger.WithField("chart", name).Warn("No data for chart, skipping")
				continue
			}
			return err
		}

		if err := os.WriteFile(filepath.Join(dir, name), png, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	return nil
}
