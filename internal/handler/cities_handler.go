package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/directory-leads/internal/dto"
)

// CitiesHandler serves the configured city catalogue.
type CitiesHandler struct {
	cities   []string
	maxPages int
}

// NewCitiesHandler copies cities so later changes by the caller are not visible.
func NewCitiesHandler(cities []string, maxPages int) *CitiesHandler {
	return &CitiesHandler{cities: append([]string(nil), cities...), maxPages: maxPages}
}

// List handles GET /cities.
func (h *CitiesHandler) List(c echo.Context) error {
	cities := h.cities
	if cities == nil {
		cities = []string{}
	}
	return Success(c, http.StatusOK, "cities retrieved", dto.CitiesResponse{
		Cities:   cities,
		MinPages: 1,
		MaxPages: h.maxPages,
	})
}
