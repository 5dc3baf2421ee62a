package stations

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/sharksmhi/ctdstations/internal/errors"
	"github.com/sharksmhi/ctdstations/internal/geo"
)

const utf8BOM = "\ufeff"

// ParseTable reads a tab-separated reference table with a header row.
//
// Short rows are padded with empty cells. A row with more cells than the
// header, an empty station name, or an unparsable position or radius fails
// the whole table.
func ParseTable(r io.Reader, cols Columns) ([]Record, error) {
	cols = cols.withDefaults()

	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, parseError(fmt.Errorf("reference table is empty"), 0)
	}
	if err != nil {
		return nil, parseError(err, 1)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, required := range []string{cols.Name, cols.Latitude, cols.Longitude, cols.Radius} {
		if _, ok := index[required]; !ok {
			return nil, errors.Newf("reference table is missing column %q", required).
				Component("stations").
				Category(errors.CategoryValidation).
				Context("columns", strings.Join(header, ",")).
				Build()
		}
	}

	cell := func(row []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return nil, parseError(err, line)
		}
		line, _ := reader.FieldPos(0)
		if len(row) > len(header) {
			return nil, parseError(fmt.Errorf("expected %d fields, saw %d", len(header), len(row)), line)
		}

		rec, err := newRecord(row, header, cols, cell)
		if err != nil {
			return nil, parseError(err, line)
		}
		records = append(records, rec)
	}

	return records, nil
}

func newRecord(row, header []string, cols Columns, cell func([]string, string) string) (Record, error) {
	cells := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(row) {
			cells[name] = row[i]
		} else {
			cells[name] = ""
		}
	}

	rec := Record{
		Name:        strings.TrimSpace(cell(row, cols.Name)),
		LatitudeDM:  strings.TrimSpace(cell(row, cols.Latitude)),
		LongitudeDM: strings.TrimSpace(cell(row, cols.Longitude)),
		Depth:       strings.TrimSpace(cell(row, cols.Depth)),
		Medium:      strings.TrimSpace(cell(row, cols.Medium)),
		Synonyms:    splitSynonyms(cell(row, cols.Synonyms)),
		Cells:       cells,
	}
	if rec.Name == "" {
		return Record{}, fmt.Errorf("empty station name")
	}

	var err error
	if rec.Latitude, err = geo.ParseEncoded(rec.LatitudeDM); err != nil {
		return Record{}, fmt.Errorf("station %s latitude: %w", rec.Name, err)
	}
	if rec.Longitude, err = geo.ParseEncoded(rec.LongitudeDM); err != nil {
		return Record{}, fmt.Errorf("station %s longitude: %w", rec.Name, err)
	}

	if radius := strings.TrimSpace(cell(row, cols.Radius)); radius != "" {
		rec.Radius, err = geo.ParseNumber(radius)
		if err != nil {
			return Record{}, fmt.Errorf("station %s radius %q: %w", rec.Name, radius, err)
		}
		rec.HasRadius = true
	}

	return rec, nil
}

// splitSynonyms splits a synonym cell on SynonymDelimiter, dropping blanks.
func splitSynonyms(field string) []string {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}
	parts := strings.Split(field, SynonymDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseError(err error, line int) error {
	return errors.New(fmt.Errorf("reference table line %d: %w", line, err)).
		Component("stations").
		Category(errors.CategoryFileParsing).
		Context("line", line).
		Build()
}
