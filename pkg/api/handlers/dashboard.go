package handlers

import (
	"errors"

	"github.com/caravan-insights/priceanalyzer/pkg/chart"
	"github.com/caravan-insights/priceanalyzer/pkg/format"
	"github.com/caravan-insights/priceanalyzer/pkg/pipeline"
	"github.com/gofiber/fiber/v3"
)

// DashboardResponse is the pipeline output plus its display texts
type DashboardResponse struct {
	*pipeline.Dashboard
	Tiles      []format.Tile `json:"tiles"`
	Notice     string        `json:"notice"`
	CountLabel string        `json:"count_label"`
}

// GetDashboard handles GET /dashboard
func (s *Server) GetDashboard(c fiber.Ctx) error {
	dash, err := s.run(c)
	if err != nil {
		return err
	}

	tiles, err := s.formatter.Tiles(dash.KPIs)
	if err != nil {
		return err
	}

	return c.JSON(DashboardResponse{
		Dashboard:  dash,
		Tiles:      tiles,
		Notice:     s.formatter.Notice(dash.LowSample),
		CountLabel: s.formatter.Count(dash.Rows),
	})
}

// GetPriceChart handles GET /charts/price.png
func (s *Server) GetPriceChart(c fiber.Ctx) error {
	dash, err := s.run(c)
	if err != nil {
		return err
	}

	return s.sendPNG(c, func() ([]byte, error) {
		return s.renderer.Price(dash)
	})
}

// GetShareChart handles GET /charts/shares/:facet.png
func (s *Server) GetShareChart(c fiber.Ctx) error {
	facet, err := facetParam(c)
	if err != nil {
		return err
	}

	dash, err := s.run(c)
	if err != nil {
		return err
	}

	for _, ss := range dash.Shares {
		if ss.Facet == facet {
			return s.sendPNG(c, func() ([]byte, error) {
				return s.renderer.Shares(ss, dash.Periods)
			})
		}
	}

	return ErrFacetNotCharted
}

// GetFacetMedianChart handles GET /charts/medians/:facet.png
func (s *Server) GetFacetMedianChart(c fiber.Ctx) error {
	facet, err := facetParam(c)
	if err != nil {
		return err
	}

	dash, err := s.run(c)
	if err != nil {
		return err
	}

	for _, fs := range dash.FacetMedians {
		if fs.Facet == facet {
			return s.sendPNG(c, func() ([]byte, error) {
				return s.renderer.FacetMedians(fs, dash.Periods)
			})
		}
	}

	return ErrFacetNotCharted
}

func (s *Server) sendPNG(c fiber.Ctx, render func() ([]byte, error)) error {
	png, err := render()
	if err != nil {
		if errors.Is(err, chart.ErrNoData) {
			return ErrNoChartData
		}
		s.log.WithError(err).Error("Chart rendering failed")
		return err
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(png)
}
