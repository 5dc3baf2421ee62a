package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/time/rate"

	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/observability"
	"github.com/sharksmhi/ctdstations/internal/stations"
)

const stationTable = "STATION_NAME\tLAT_DM\tLONG_DM\tWADEP\tMEDIA\tSYNONYM_NAMES\tOUT_OF_BOUNDS_RADIUS\n" +
	"BY31 LANDSORTSDJ\t5533.0\t1824.0\t459\tVatten\tBY31<or>LANDSORTSDJUPET\t500\n" +
	"ÖLAND NORRA\t5540.0\t1824.0\t\t\tOland Synonym\t500\n"

// setupTestServer loads stationTable and returns a server with metrics.
func setupTestServer(t *testing.T, opts ...ServerOption) (*Server, *observability.Metrics) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "station.txt")
	require.NoError(t, os.WriteFile(path, []byte(stationTable), 0o644))

	log := logger.NewSlogLogger(&bytes.Buffer{}, logger.LogLevelDebug, time.UTC)
	store, err := stations.Load(t.Context(),
		stations.SourceConfig{BackupPath: path, BackupEncoding: "utf-8"},
		stations.WithLogger(log))
	require.NoError(t, err)

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	resolver := stations.NewResolver(store, stations.WithRecorder(m.Stations))
	return New(resolver, append([]ServerOption{WithLogger(log), WithMetrics(m)}, opts...)...), m
}

func doGet(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestListStations(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doGet(t, s, "/api/v1/stations")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StationListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{"BY31 LANDSORTSDJ", "ÖLAND NORRA"}, resp.Stations)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestListStationsXLSX(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doGet(t, s, "/api/v1/stations?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Stations")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ÖLAND NORRA", rows[2][0])
}

func TestListStationsBadFormat(t *testing.T) {
	s, _ := setupTestServer(t)
	rec := doGet(t, s, "/api/v1/stations?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStation(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doGet(t, s, "/api/v1/stations/landsortsdjupet")
	require.Equal(t, http.StatusOK, rec.Code)
	var info stations.StationInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "BY31 LANDSORTSDJ", info.Station)
	assert.Equal(t, "459", info.Depth)
	assert.False(t, info.HasDistance)

	rec = doGet(t, s, "/api/v1/stations/NOWHERE")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, http.StatusNotFound, errResp.Code)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), errResp.CorrelationID)
}

func TestNearest(t *testing.T) {
	s, _ := setupTestServer(t)

	tests := []struct {
		name       string
		query      string
		wantCode   int
		station    string
		distance   int
		acceptable bool
	}{
		{"inside radius", "lat=5533.2&lon=1824.0", http.StatusOK, "BY31 LANDSORTSDJ", 370, true},
		{"comma decimals", "lat=5533,2&lon=1824,0", http.StatusOK, "BY31 LANDSORTSDJ", 370, true},
		{"outside radius", "lat=5539.5&lon=1824", http.StatusOK, "ÖLAND NORRA", 925, false},
		{"missing lon", "lat=5533.2", http.StatusBadRequest, "", 0, false},
		{"bad lat", "lat=north&lon=1824", http.StatusBadRequest, "", 0, false},
		{"not finite", "lat=NaN&lon=1824", http.StatusNotFound, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, s, "/api/v1/nearest?"+tt.query)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			var info stations.StationInfo
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
			assert.Equal(t, tt.station, info.Station)
			assert.Equal(t, tt.distance, info.Distance)
			assert.Equal(t, tt.acceptable, info.Acceptable)
			assert.True(t, info.HasDistance)
		})
	}
}

func TestDistance(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := doGet(t, s, "/api/v1/distance?lat=5533.0&lon=1824.0&station=oland%20synonym")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp DistanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, DistanceResponse{Station: "ÖLAND NORRA", Distance: 12956}, resp)

	assert.Equal(t, http.StatusBadRequest, doGet(t, s, "/api/v1/distance?lat=5533&lon=1824").Code)
	assert.Equal(t, http.StatusNotFound, doGet(t, s, "/api/v1/distance?lat=5533&lon=1824&station=nope").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s, m := setupTestServer(t)

	rec := doGet(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "backup", health.Source)
	assert.Equal(t, 2, health.Stations)

	doGet(t, s, "/api/v1/stations/NOWHERE")

	count, err := testutil.GatherAndCount(m.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per route and status")

	rec = doGet(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `http_request_errors_total{error_type="not_found",method="GET",path="/api/v1/stations/:name"} 1`), body)
	assert.Contains(t, body, "stations_queries_total")
}

func TestPositionQueriesAreRateLimited(t *testing.T) {
	s, _ := setupTestServer(t, WithRateLimit(rate.Every(time.Hour), 2))

	require.Equal(t, http.StatusOK, doGet(t, s, "/api/v1/nearest?lat=5533.2&lon=1824").Code)
	require.Equal(t, http.StatusOK, doGet(t, s, "/api/v1/distance?lat=5533&lon=1824&station=by31").Code)

	rec := doGet(t, s, "/api/v1/nearest?lat=5533.2&lon=1824")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.NotEmpty(t, resp.CorrelationID)

	// Name lookups do not draw from the budget
	assert.Equal(t, http.StatusOK, doGet(t, s, "/api/v1/stations/by31").Code)
	assert.Equal(t, http.StatusOK, doGet(t, s, "/api/v1/stations").Code)
}

func TestRateLimitIsPerClient(t *testing.T) {
	s, _ := setupTestServer(t, WithRateLimit(rate.Every(time.Hour), 1))

	get := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/nearest?lat=5533&lon=1824", http.NoBody)
		req.RemoteAddr = ip + ":40000"
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("192.0.2.1"))
	assert.Equal(t, http.StatusOK, get("192.0.2.2"))
}

func TestRateLimitDisabledByDefault(t *testing.T) {
	s, _ := setupTestServer(t)
	for range 5 {
		require.Equal(t, http.StatusOK, doGet(t, s, "/api/v1/nearest?lat=5533&lon=1824").Code)
	}
}
