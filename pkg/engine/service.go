package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof is intentionally exposed when pprofAddr is configured
	"sync/atomic"
	"time"

	"github.com/caravan-insights/priceanalyzer/pkg/api"
	"github.com/caravan-insights/priceanalyzer/pkg/api/handlers"
	"github.com/caravan-insights/priceanalyzer/pkg/chart"
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/format"
	"github.com/caravan-insights/priceanalyzer/pkg/observability"
	"github.com/caravan-insights/priceanalyzer/pkg/pipeline"
	"github.com/sirupsen/logrus"
)

// Service encapsulates the dashboard application
type Service struct {
	config *Config
	log    *logrus.Logger

	dataset  *dataset.Dataset
	pipeline *pipeline.Pipeline
	api      api.Service

	// Servers
	healthServer *http.Server
	pprofServer  *http.Server

	ready atomic.Bool
}

// NewService validates cfg and creates the application
func NewService(log *logrus.Logger, cfg *Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Service{
		log:    log,
		config: cfg,
	}, nil
}

// Start loads the dataset and starts every server. A dataset that cannot be
// loaded is fatal.
func (a *Service) Start(ctx context.Context) error {
	a.log.Info("Starting priceanalyzer...")

	observability.StartMetricsServer(a.log, a.config.MetricsAddr)

	if a.config.HealthCheckAddr != "" {
		a.startHealthCheck()
	}

	if a.config.PProfAddr != "" {
		a.startPProf()
	}

	ds, err := LoadDataset(ctx, a.log, &a.config.Dataset)
	if err != nil {
		return err
	}

	if err := a.build(ds); err != nil {
		return err
	}

	if err := a.api.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API service: %w", err)
	}

	a.ready.Store(true)
	a.log.Info("priceanalyzer started successfully")

	return nil
}

// build creates the pipeline and API service over a loaded dataset
func (a *Service) build(ds *dataset.Dataset) error {
	p, err := pipeline.New(ds, &a.config.Pipeline)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	formatter, err := format.New(&a.config.Format)
	if err != nil {
		return fmt.Errorf("failed to create formatter: %w", err)
	}

	renderer, err := chart.NewRenderer(&a.config.Chart, formatter)
	if err != nil {
		return fmt.Errorf("failed to create chart renderer: %w", err)
	}

	a.dataset = ds
	a.pipeline = p
	a.api = api.NewService(&a.config.API, handlers.NewServer(p, formatter, renderer, a.log), a.log)

	return nil
}

// Pipeline returns the running pipeline, or nil before Start succeeded
func (a *Service) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Stop gracefully shuts down the application
func (a *Service) Stop() error {
	a.log.Info("Shutting down priceanalyzer...")
	a.ready.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopService := func(name string, stopFunc func() error) {
		if err := stopFunc(); err != nil {
			a.log.WithError(err).Errorf("Failed to stop %s", name)
		}
	}

	if a.api != nil {
		stopService("API service", a.api.Stop)
	}

	stopService("metrics server", func() error { return observability.StopMetricsServer(ctx) })

	if a.healthServer != nil {
		stopService("health check server", func() error { return a.healthServer.Shutdown(ctx) })
	}
	if a.pprofServer != nil {
		stopService("pprof server", func() error { return a.pprofServer.Shutdown(ctx) })
	}

	return nil
}

// healthHandler serves /health always and /ready once the dataset is loaded
func (a *Service) healthHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !a.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return mux
}

func (a *Service) startHealthCheck() {
	a.log.WithField("addr", a.config.HealthCheckAddr).Info("Starting health check server")

	a.healthServer = &http.Server{
		Addr:              a.config.HealthCheckAddr,
		Handler:           a.healthHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := a.healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Health check server failed")
		}
	}()
}

func (a *Service) startPProf() {
	a.log.WithField("addr", a.config.PProfAddr).Info("Starting pprof server")

	a.pprofServer = &http.Server{
		Addr:              a.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	go func() {
		if err := a.pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Pprof server failed")
		}
	}()
}
