// stations.go contains the station query endpoints
package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sharksmhi/ctdstations/internal/export"
	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/stations"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Controller holds the dependencies of the station endpoints.
type Controller struct {
	Resolver *stations.Resolver
	Exporter *export.Exporter
	log      logger.Logger
}

// StationListResponse is returned by the station list endpoint.
type StationListResponse struct {
	Count    int      `json:"count"`
	Stations []string `json:"stations"`
}

// DistanceResponse is returned by the distance endpoint.
type DistanceResponse struct {
	Station  string `json:"station"`
	Distance int    `json:"distance"`
}

// ListStations returns the station names, or an XLSX workbook of the
// stations with ?format=xlsx.
func (c *Controller) ListStations(ctx echo.Context) error {
	names := c.Resolver.StationList()

	switch strings.ToLower(ctx.QueryParam("format")) {
	case "", "json":
		return ctx.JSON(http.StatusOK, StationListResponse{Count: len(names), Stations: names})
	case "xlsx":
		infos := make([]stations.StationInfo, 0, len(names))
		for _, name := range names {
			if info, ok := c.Resolver.StationInfo(name); ok {
				infos = append(infos, info)
			}
		}
		var buf bytes.Buffer
		if err := c.Exporter.WriteStations(&buf, infos); err != nil {
			return c.HandleError(ctx, err, "Failed to export stations", http.StatusInternalServerError)
		}
		ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="stations.xlsx"`)
		return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
	default:
		return c.HandleError(ctx, nil, "Unsupported format, use json or xlsx", http.StatusBadRequest)
	}
}

// GetStation returns one station by name or synonym.
func (c *Controller) GetStation(ctx echo.Context) error {
	name := ctx.Param("name")
	info, ok := c.Resolver.StationInfo(name)
	if !ok {
		return c.HandleError(ctx, nil, fmt.Sprintf("Station %q not found", name), http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, info)
}

// Nearest returns the station closest to ?lat=&lon=.
func (c *Controller) Nearest(ctx echo.Context) error {
	lat, lon, err := parsePosition(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid position", http.StatusBadRequest)
	}
	info, ok := c.Resolver.NearestStationAt(lat, lon)
	if !ok {
		return c.HandleError(ctx, nil, "No station found", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, info)
}

// Distance returns the distance from ?lat=&lon= to ?station=.
func (c *Controller) Distance(ctx echo.Context) error {
	lat, lon, err := parsePosition(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid position", http.StatusBadRequest)
	}
	name := ctx.QueryParam("station")
	if name == "" {
		return c.HandleError(ctx, nil, "Missing station parameter", http.StatusBadRequest)
	}
	proper, ok := c.Resolver.ProperName(name)
	if !ok {
		return c.HandleError(ctx, nil, fmt.Sprintf("Station %q not found", name), http.StatusNotFound)
	}
	dist, ok := c.Resolver.DistanceToStation(lat, lon, proper)
	if !ok {
		return c.HandleError(ctx, nil, "Invalid position", http.StatusBadRequest)
	}
	return ctx.JSON(http.StatusOK, DistanceResponse{Station: proper, Distance: dist})
}

// parsePosition reads the lat and lon query parameters.
func parsePosition(ctx echo.Context) (lat, lon float64, err error) {
	if lat, err = parseCoordinate(ctx, "lat"); err != nil {
		return 0, 0, err
	}
	if lon, err = parseCoordinate(ctx, "lon"); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func parseCoordinate(ctx echo.Context, param string) (float64, error) {
	raw := strings.TrimSpace(ctx.QueryParam(param))
	if raw == "" {
		return 0, fmt.Errorf("missing %s parameter", param)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", param, raw)
	}
	return v, nil
}
