package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/observability/metrics"
)

func TestRequestIDAndLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	e := echo.New()
	e.Use(RequestID(), NewRequestLogger(log))
	var seen string
	e.GET("/ping", func(c echo.Context) error {
		seen = GetRequestID(c)
		return c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "/ping", entry["uri"])
	assert.Equal(t, "req-42", entry["trace_id"])
}

func TestRequestIDGenerated(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36, "uuid string form")
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewHTTPMetrics(reg)
	require.NoError(t, err)

	e := echo.New()
	e.Use(NewMetrics(m))
	e.GET("/items/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound, "no such item")
		}
		return c.String(http.StatusOK, "item")
	})

	for _, id := range []string{"1", "2", "missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, http.NoBody))
	}

	expected := `
# HELP http_requests_total Total number of HTTP requests
# TYPE http_requests_total counter
http_requests_total{method="GET",path="/items/:id",status_code="200"} 2
http_requests_total{method="GET",path="/items/:id",status_code="404"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total"))

	errExpected := `
# HELP http_request_errors_total Total number of HTTP request errors
# TYPE http_request_errors_total counter
http_request_errors_total{error_type="not_found",method="GET",path="/items/:id"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(errExpected), "http_request_errors_total"))
}
