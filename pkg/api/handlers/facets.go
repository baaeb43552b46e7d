package handlers

import (
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/period"
	"github.com/gofiber/fiber/v3"
)

// FacetsResponse lists the selectable values per facet and the dataset's period range
type FacetsResponse struct {
	Facets  map[dataset.Facet][]string `json:"facets"`
	Periods []period.Period            `json:"periods"`
	Rows    int                        `json:"rows"`
}

// GetFacets handles GET /facets
func (s *Server) GetFacets(c fiber.Ctx) error {
	ds := s.pipeline.Dataset()

	return c.JSON(FacetsResponse{
		Facets:  ds.Facets(),
		Periods: ds.Table().Periods(),
		Rows:    ds.Table().Len(),
	})
}
