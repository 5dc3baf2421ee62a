package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sharksmhi/ctdstations/internal/observability/metrics"
)

// NewMetrics records request counts, latency and response size per route.
// Unmatched routes are recorded under "unmatched" to bound label cardinality.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo write the error response so the status is final
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			status := c.Response().Status

			m.RecordHTTPRequest(method, path, status, time.Since(start).Seconds())
			m.RecordHTTPResponseSize(method, path, c.Response().Size)
			switch {
			case status == http.StatusNotFound:
				m.RecordHTTPRequestError(method, path, "not_found")
			case status >= http.StatusInternalServerError:
				m.RecordHTTPRequestError(method, path, "system")
			case status >= http.StatusBadRequest:
				m.RecordHTTPRequestError(method, path, "validation")
			}
			return nil
		}
	}
}
