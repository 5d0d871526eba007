package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/octobees/directory-leads/internal/config"
	"github.com/octobees/directory-leads/internal/handler"
	middlewarepkg "github.com/octobees/directory-leads/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Cities *handler.CitiesHandler
	Scrape *handler.ScrapeHandler
}

// Register wires all HTTP routes for the API. A nil gatherer leaves /metrics unmounted.
func Register(e *echo.Echo, cfg *config.Config, handlers Handlers, gatherer prometheus.Gatherer) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	if handlers.Cities != nil {
		e.GET("/cities", handlers.Cities.List)
	}

	if handlers.Scrape != nil {
		scrape := e.Group("/scrape", middlewarepkg.ScrapeRateLimiter(cfg.RateLimitScrape))
		scrape.POST("", handlers.Scrape.Scrape)
		scrape.POST("/export", handlers.Scrape.Export)
	}
}
