package handlers

import "github.com/gofiber/fiber/v3"

// ErrUnknownFacet is returned when a route names a facet that does not exist
var ErrUnknownFacet = fiber.NewError(fiber.StatusNotFound, "unknown facet")

// ErrFacetNotCharted is returned when a facet exists but has no chart configured
var ErrFacetNotCharted = fiber.NewError(fiber.StatusNotFound, "no chart configured for facet")

// ErrNoChartData is returned when the selection leaves nothing to draw
var ErrNoChartData = fiber.NewError(fiber.StatusNotFound, "no data for selection")

// newSelectionError reports a selection value that does not exist in the dataset
func newSelectionError(err error) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}
