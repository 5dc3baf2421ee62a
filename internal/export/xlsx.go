// Package export writes station lists and nearest-station results as XLSX workbooks.
package export

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sharksmhi/ctdstations/internal/errors"
	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/observability/metrics"
	"github.com/sharksmhi/ctdstations/internal/stations"
)

// Sheet names used in exported workbooks.
const (
	SheetStations = "Stations"
	SheetNearest  = "Nearest"

	defaultSheet = "Sheet1"
)

var stationHeaders = []any{
	"Station", "LAT_DM", "LONG_DM", "Latitude", "Longitude",
	"Radius (m)", "Depth", "Medium", "Synonyms",
}

var nearestHeaders = []any{
	"Query lat", "Query lon", "Station", "LAT_DM", "LONG_DM",
	"Distance (m)", "Radius (m)", "Acceptable",
}

// NearestRow is one queried position and its resolved station. Found is
// false when no station could be resolved for the position.
type NearestRow struct {
	QueryLat float64
	QueryLon float64
	Info     stations.StationInfo
	Found    bool
}

// Exporter writes workbooks.
type Exporter struct {
	log      logger.Logger
	recorder metrics.Recorder
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRecorder records export metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Exporter) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New creates an Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		log:      logger.Global().Module("export"),
		recorder: metrics.NewNoOpRecorder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WriteStations writes one row per station to w.
func (e *Exporter) WriteStations(w io.Writer, infos []stations.StationInfo) error {
	rows := make([][]any, 0, len(infos))
	for i := range infos {
		s := &infos[i]
		rows = append(rows, []any{
			s.Station, s.LatitudeDM, s.LongitudeDM, s.Latitude, s.Longitude,
			s.Radius, s.Depth, s.Medium, strings.Join(s.Synonyms, " "+stations.SynonymDelimiter+" "),
		})
	}
	return e.write(w, SheetStations, stationHeaders, rows)
}

// WriteNearest writes one row per queried position to w. Unresolved
// positions keep their query columns and leave the station columns empty.
func (e *Exporter) WriteNearest(w io.Writer, results []NearestRow) error {
	rows := make([][]any, 0, len(results))
	for i := range results {
		r := &results[i]
		if !r.Found {
			rows = append(rows, []any{r.QueryLat, r.QueryLon})
			continue
		}
		rows = append(rows, []any{
			r.QueryLat, r.QueryLon, r.Info.Station, r.Info.LatitudeDM, r.Info.LongitudeDM,
			r.Info.Distance, r.Info.Radius, r.Info.Acceptable,
		})
	}
	return e.write(w, SheetNearest, nearestHeaders, rows)
}

// SaveStations writes the station workbook to path.
func (e *Exporter) SaveStations(path string, infos []stations.StationInfo) error {
	return e.save(path, func(w io.Writer) error { return e.WriteStations(w, infos) })
}

// SaveNearest writes the nearest-station workbook to path.
func (e *Exporter) SaveNearest(path string, results []NearestRow) error {
	return e.save(path, func(w io.Writer) error { return e.WriteNearest(w, results) })
}

func (e *Exporter) save(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(err, dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.FileError(err, path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return errors.FileError(err, path)
	}
	e.log.Info("Workbook written", logger.String("path", path))
	return nil
}

// write streams headers and rows into a single-sheet workbook.
func (e *Exporter) write(w io.Writer, sheet string, headers []any, rows [][]any) (err error) {
	start := time.Now()
	defer func() {
		e.recorder.RecordDuration(metrics.OpExport, time.Since(start).Seconds())
		if err != nil {
			e.recorder.RecordOperation(metrics.OpExport, metrics.StatusError)
			e.recorder.RecordError(metrics.OpExport, string(errors.CategoryExport))
			return
		}
		e.recorder.RecordOperation(metrics.OpExport, metrics.StatusSuccess)
	}()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return exportError(err, sheet)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return exportError(err, sheet)
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return exportError(err, sheet)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return exportError(err, sheet)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return exportError(err, sheet)
		}
	}
	if err := sw.Flush(); err != nil {
		return exportError(err, sheet)
	}

	f.SetActiveSheet(index)
	if sheet != defaultSheet {
		f.DeleteSheet(defaultSheet)
	}

	if err := f.Write(w); err != nil {
		return exportError(err, sheet)
	}
	e.log.Debug("Workbook exported",
		logger.String("sheet", sheet),
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func exportError(err error, sheet string) error {
	return errors.New(err).
		Component("export").
		Category(errors.CategoryExport).
		Context("sheet", sheet).
		Build()
}
