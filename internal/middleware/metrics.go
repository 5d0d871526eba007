package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/octobees/directory-leads/internal/metrics"
)

// Metrics records request count and latency labelled by method, route and status.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			// route template keeps label cardinality bounded
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			code := c.Response().Status
			if err != nil && !c.Response().Committed {
				code = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					code = he.Code
				}
			}
			status := strconv.Itoa(code)
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(duration.Seconds())
			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()

			return err
		}
	}
}
