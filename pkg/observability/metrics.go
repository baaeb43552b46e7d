package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// PipelineRunsTotal tracks the total number of dashboard computations
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "priceanalyzer_pipeline_runs_total",
			Help: "Total number of dashboard pipeline runs",
		},
		[]string{"status"}, // status: success, failed
	)

	// PipelineDuration measures pipeline run duration in seconds
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "priceanalyzer_pipeline_duration_seconds",
			Help:    "Dashboard pipeline run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"status"},
	)

	// FilteredRows measures the size of the filtered subset per run
	FilteredRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "priceanalyzer_filtered_rows",
			Help:    "Number of rows left after applying the facet selection",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~262k
		},
	)

	// ActiveFacets counts how often each facet is constrained by a selection
	ActiveFacets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "priceanalyzer_active_facets_total",
			Help: "Number of pipeline runs constraining each facet",
		},
		[]string{"facet"},
	)

	// LowSampleTotal counts runs whose current period fell below the sample threshold
	LowSampleTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "priceanalyzer_low_sample_total",
			Help: "Number of pipeline runs flagged as low sample",
		},
	)

	// UndefinedKPIs counts KPIs that could not be computed
	UndefinedKPIs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "priceanalyzer_undefined_kpis_total",
			Help: "Number of KPIs reported as not available",
		},
		[]string{"kpi"},
	)

	// DatasetRows reports the loaded dataset size
	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "priceanalyzer_dataset_rows",
			Help: "Rows of the loaded dataset",
		},
		[]string{"state"}, // state: retained, excluded, null_category
	)

	// DatasetPeriods reports the number of distinct periods in the dataset
	DatasetPeriods = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "priceanalyzer_dataset_periods",
			Help: "Distinct quarters present in the loaded dataset",
		},
	)

	// DatasetLoadDuration measures the one-off dataset load
	DatasetLoadDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "priceanalyzer_dataset_load_duration_seconds",
			Help: "Time taken to load the dataset at startup",
		},
	)

	// ChartRenders counts rendered charts
	ChartRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "priceanalyzer_chart_renders_total",
			Help: "Total number of rendered charts",
		},
		[]string{"chart", "status"},
	)

	// HTTPRequests counts API requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "priceanalyzer_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "code"},
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "priceanalyzer_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordPipelineRun records a pipeline run
func RecordPipelineRun(status string, duration float64) {
	PipelineRunsTotal.WithLabelValues(status).Inc()
	PipelineDuration.WithLabelValues(status).Observe(duration)
}

// RecordSelection records the filtered subset size and the facets a run constrained
func RecordSelection(rows int, facets []string) {
	FilteredRows.Observe(float64(rows))
	for _, f := range facets {
		ActiveFacets.WithLabelValues(f).Inc()
	}
}

// RecordLowSample records a low-sample run
func RecordLowSample() {
	LowSampleTotal.Inc()
}

// RecordUndefinedKPI records a KPI that was not available
func RecordUndefinedKPI(name string) {
	UndefinedKPIs.WithLabelValues(name).Inc()
}

// RecordDatasetLoad records the dataset size after load
func RecordDatasetLoad(retained, excluded, nullCategory, periods int, duration float64) {
	DatasetRows.WithLabelValues("retained").Set(float64(retained))
	DatasetRows.WithLabelValues("excluded").Set(float64(excluded))
	DatasetRows.WithLabelValues("null_category").Set(float64(nullCategory))
	DatasetPeriods.Set(float64(periods))
	DatasetLoadDuration.Set(duration)
}

// RecordChartRender records a chart render
func RecordChartRender(chart, status string) {
	ChartRenders.WithLabelValues(chart, status).Inc()
}

// RecordHTTPRequest records a handled API request
func RecordHTTPRequest(route, code string) {
	HTTPRequests.WithLabelValues(route, code).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
