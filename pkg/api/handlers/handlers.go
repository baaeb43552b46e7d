// Package handlers implements the dashboard API request handlers
package handlers

import (
	"github.com/caravan-insights/priceanalyzer/pkg/chart"
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/filter"
	"github.com/caravan-insights/priceanalyzer/pkg/format"
	"github.com/caravan-insights/priceanalyzer/pkg/pipeline"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// Server serves pipeline output over HTTP
type Server struct {
	pipeline  *pipeline.Pipeline
	formatter *format.Formatter
	renderer  *chart.Renderer
	log       logrus.FieldLogger
}

// NewServer creates a new API server instance
func NewServer(p *pipeline.Pipeline, f *format.Formatter, r *chart.Renderer, log logrus.FieldLogger) *Server {
	return &Server{
		pipeline:  p,
		formatter: f,
		renderer:  r,
		log:       log.WithField("component", "api.handlers"),
	}
}

// RegisterRoutes mounts every handler on router
func (s *Server) RegisterRoutes(router fiber.Router) {
	router.Get("/facets", s.GetFacets)
	router.Get("/dashboard", s.GetDashboard)
	router.Get("/charts/price.png", s.GetPriceChart)
	router.Get("/charts/shares/:facet.png", s.GetShareChart)
	router.Get("/charts/medians/:facet.png", s.GetFacetMedianChart)
}

// selection reads the facet selection from the query string and checks it
// against the dataset's facet values
func (s *Server) selection(c fiber.Ctx) (filter.Selection, error) {
	var sel filter.Selection
	for _, f := range dataset.AllFacets {
		sel = sel.With(f, c.Query(string(f)))
	}

	if err := sel.Validate(s.pipeline.Dataset().Facets()); err != nil {
		return filter.Selection{}, newSelectionError(err)
	}

	return sel, nil
}

// run validates the selection and runs the pipeline
func (s *Server) run(c fiber.Ctx) (*pipeline.Dashboard, error) {
	sel, err := s.selection(c)
	if err != nil {
		return nil, err
	}

	dash, err := s.pipeline.Run(sel)
	if err != nil {
		s.log.WithError(err).Error("Pipeline run failed")
		return nil, err
	}

	return dash, nil
}

// facetParam resolves the :facet route parameter
func facetParam(c fiber.Ctx) (dataset.Facet, error) {
	f, err := dataset.ParseFacet(c.Params("facet"))
	if err != nil {
		return "", ErrUnknownFacet
	}
	return f, nil
}
