package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/engine"
	"github.com/spf13/cobra"
)

// datasetCmd represents the dataset command group
//
//nolint:gochecknoglobals // Cobra commands are typically global
var datasetCmd = &cobra.Command{
	Use:               "dataset",
	Short:             "Inspect and publish the transaction dataset",
	Long:              `Commands for summarising the configured dataset and publishing CSV snapshots to Redis.`,
	PersistentPreRunE: quietByDefault,
}

//nolint:gochecknoglobals // Cobra commands are typically global
var datasetInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show row counts and the period range",
	RunE:  runDatasetInfo,
}

//nolint:gochecknoglobals // Cobra commands are typically global
var datasetFacetsCmd = &cobra.Command{
	Use:   "facets",
	Short: "List the selectable values of every facet",
	RunE:  runDatasetFacets,
}

//nolint:gochecknoglobals // Cobra commands are typically global
var datasetPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Publish a CSV file to the configured Redis key",
	Long:  `Validates a CSV file and stores it under the Redis key the redis dataset source reads from.`,
	RunE:  runDatasetPush,
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetInfoCmd)
	datasetCmd.AddCommand(datasetFacetsCmd)
	datasetCmd.AddCommand(datasetPushCmd)

	datasetPushCmd.Flags().String("file", "", "CSV file to publish")
	_ = datasetPushCmd.MarkFlagRequired("file")
}

func loadDataset(cmd *cobra.Command) (*dataset.Dataset, error) {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	return engine.LoadDataset(context.Background(), logger, &config.Dataset)
}

func runDatasetInfo(cmd *cobra.Command, _ []string) error {
	ds, err := loadDataset(cmd)
	if err != nil {
		return err
	}

	stats := ds.Stats()
	periods := ds.Table().Periods()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "SOURCE\t%s\n", stats.Source)
	_, _ = fmt.Fprintf(w, "ROWS\t%d\n", stats.Rows)
	_, _ = fmt.Fprintf(w, "EXCLUDED\t%d\n", stats.ExcludedRows)
	_, _ = fmt.Fprintf(w, "NO CATEGORY\t%d\n", stats.NullCategoryRows)
	if len(periods) > 0 {
		_, _ = fmt.Fprintf(w, "RANGE\t%s - %s\n", periods[0], periods[len(periods)-1])
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "QUARTER\tROWS")
	for _, p := range periods {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", p, ds.Table().CountIn(p))
	}

	return w.Flush()
}

func runDatasetFacets(cmd *cobra.Command, _ []string) error {
	ds, err := loadDataset(cmd)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FACET\tVALUES")
	for _, f := range dataset.AllFacets {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", f, strings.Join(ds.FacetValues(f), ", "))
	}

	return w.Flush()
}

func runDatasetPush(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	src := &config.Dataset.Source
	if err := src.Redis.Validate(); err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	payload, err := os.ReadFile(file) //nolint:gosec // User-provided dataset path
	if err != nil {
		return err
	}

	client, err := src.Redis.NewClient()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.WithError(closeErr).Error("Failed to close Redis client")
		}
	}()

	if err := engine.PublishDataset(context.Background(), src, client, payload); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Published %s to %s (%d bytes)\n", file, src.Redis.PrefixKey(src.Key), len(payload))

	return nil
}
