package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"

	"github.com/octobees/directory-leads/internal/config"
	"github.com/octobees/directory-leads/internal/dto"
	"github.com/octobees/directory-leads/internal/export"
	"github.com/octobees/directory-leads/internal/service"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeCSV  = "text/csv; charset=utf-8"
)

// Scraper runs the directory pipeline.
type Scraper interface {
	RunQuery(ctx context.Context, q service.Query) (*service.ScrapeResult, error)
}

// ScrapeHandler exposes the scrape pipeline and its exports over HTTP.
type ScrapeHandler struct {
	scraper  Scraper
	maxPages int
}

// NewScrapeHandler constructs a scrape handler. maxPages < 1 disables the upper bound.
func NewScrapeHandler(scraper Scraper, maxPages int) *ScrapeHandler {
	return &ScrapeHandler{scraper: scraper, maxPages: maxPages}
}

// Scrape handles POST /scrape and returns one table per requested city.
func (h *ScrapeHandler) Scrape(c echo.Context) error {
	query, msg := h.bindQuery(c)
	if msg != "" {
		return Error(c, http.StatusBadRequest, msg)
	}

	result, err := h.scraper.RunQuery(c.Request().Context(), query)
	if err != nil {
		return h.runError(c, err)
	}
	return Success(c, http.StatusOK, "scrape completed", toScrapeResponse(result))
}

// Export handles POST /scrape/export?format=csv|xlsx[&city=X].
func (h *ScrapeHandler) Export(c echo.Context) error {
	query, msg := h.bindQuery(c)
	if msg != "" {
		return Error(c, http.StatusBadRequest, msg)
	}

	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format == "" {
		format = formatCSV
	}

	switch format {
	case formatCSV:
		city := strings.TrimSpace(c.QueryParam("city"))
		if city == "" {
			if len(query.Cities) != 1 {
				return Error(c, http.StatusBadRequest, "city is required when exporting csv for several cities")
			}
			city = query.Cities[0]
		} else if !containsCity(query.Cities, city) {
			return Error(c, http.StatusBadRequest, "city is not part of the request")
		}
		// only the exported city is fetched
		query.Cities = []string{city}

		result, err := h.scraper.RunQuery(c.Request().Context(), query)
		if err != nil {
			return h.runError(c, err)
		}
		table, _ := result.Table(city)
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, table); err != nil {
			return Error(c, http.StatusInternalServerError, "failed to render csv")
		}
		return attachment(c, mimeCSV, exportFilename(query.Category, city, formatCSV), buf.Bytes())

	case formatXLSX:
		result, err := h.scraper.RunQuery(c.Request().Context(), query)
		if err != nil {
			return h.runError(c, err)
		}
		sheets := make([]export.Sheet, 0, len(result.Cities))
		for _, res := range result.Cities {
			sheets = append(sheets, export.Sheet{Name: res.City, Table: res.Table})
		}
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, sheets); err != nil {
			return Error(c, http.StatusInternalServerError, "failed to render workbook")
		}
		return attachment(c, mimeXLSX, exportFilename(query.Category, "", formatXLSX), buf.Bytes())

	default:
		return Error(c, http.StatusBadRequest, "format must be csv or xlsx")
	}
}

// bindQuery decodes and validates the request body. A non-empty message means a 400.
func (h *ScrapeHandler) bindQuery(c echo.Context) (service.Query, string) {
	var req dto.ScrapeRequest
	if err := c.Bind(&req); err != nil {
		return service.Query{}, "invalid payload"
	}

	req.Category = strings.TrimSpace(req.Category)
	req.FailurePolicy = strings.ToLower(strings.TrimSpace(req.FailurePolicy))
	cities := make([]string, 0, len(req.Cities))
	for _, city := range req.Cities {
		if city = strings.TrimSpace(city); city != "" {
			cities = append(cities, city)
		}
	}

	switch {
	case req.Category == "":
		return service.Query{}, "category is required"
	case len(cities) == 0:
		return service.Query{}, "at least one city is required"
	case req.Pages < 1:
		return service.Query{}, "pages must be at least 1"
	case h.maxPages > 0 && req.Pages > h.maxPages:
		return service.Query{}, fmt.Sprintf("pages must be at most %d", h.maxPages)
	case req.FailurePolicy != "" && !config.ValidFailurePolicy(req.FailurePolicy):
		return service.Query{}, "failure_policy must be abort or isolate"
	}

	return service.Query{
		Category:      req.Category,
		Cities:        cities,
		Pages:         req.Pages,
		FailurePolicy: req.FailurePolicy,
	}, ""
}

func (h *ScrapeHandler) runError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyCategory),
		errors.Is(err, service.ErrInvalidPageCount),
		errors.Is(err, service.ErrUnknownFailurePolicy):
		return Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		return Error(c, http.StatusServiceUnavailable, "request cancelled")
	default:
		return Error(c, http.StatusBadGateway, err.Error())
	}
}

func toScrapeResponse(result *service.ScrapeResult) dto.ScrapeResponse {
	resp := dto.ScrapeResponse{
		RunID:    result.RunID.String(),
		Category: result.Category,
		Pages:    result.Pages,
		Results:  make([]dto.CityTable, 0, len(result.Cities)),
	}
	for _, res := range result.Cities {
		table := dto.CityTable{City: res.City, Rows: [][]string{}}
		if res.Table != nil {
			table.Columns = res.Table.Columns
			if res.Table.Rows != nil {
				table.Rows = res.Table.Rows
			}
		}
		for _, f := range res.Failures {
			table.Failures = append(table.Failures, dto.PageFailure{Page: f.Page, URL: f.URL, Error: f.Error})
		}
		resp.Results = append(resp.Results, table)
	}
	return resp
}

func attachment(c echo.Context, contentType, filename string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, body)
}

func containsCity(cities []string, city string) bool {
	for _, candidate := range cities {
		if strings.EqualFold(candidate, city) {
			return true
		}
	}
	return false
}

// exportFilename builds an ASCII-safe file name such as "ristoranti-milano.csv".
func exportFilename(category, city, ext string) string {
	base := category
	if city != "" {
		base += "-" + city
	}
	slug := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return unicode.ToLower(r)
		default:
			return '-'
		}
	}, base)
	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if slug == "" {
		slug = "listings"
	}
	return slug + "." + ext
}
