// Package stations loads the station reference table and answers proximity
// and name queries against it.
//
// A Store is loaded once from the primary (downloaded, cached) or backup
// source and is immutable afterwards. A Resolver wraps a Store and exposes
// nearest-station search, name and synonym lookup, and the station list.
// Both are safe for concurrent use.
package stations

import (
	"maps"
	"slices"

	"github.com/sharksmhi/ctdstations/internal/geo"
)

// Default reference table column names.
const (
	ColumnStationName = "STATION_NAME"
	ColumnLatitude    = "LAT_DM"
	ColumnLongitude   = "LONG_DM"
	ColumnRadius      = "OUT_OF_BOUNDS_RADIUS"
	ColumnDepth       = "WADEP"
	ColumnMedium      = "MEDIA"
	ColumnSynonyms    = "SYNONYM_NAMES"
)

// SynonymDelimiter separates entries in the synonym column.
const SynonymDelimiter = "<or>"

// Columns maps record fields to header names in the reference table.
type Columns struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Latitude  string `yaml:"latitude" mapstructure:"latitude"`
	Longitude string `yaml:"longitude" mapstructure:"longitude"`
	Radius    string `yaml:"radius" mapstructure:"radius"`
	Depth     string `yaml:"depth" mapstructure:"depth"`
	Medium    string `yaml:"medium" mapstructure:"medium"`
	Synonyms  string `yaml:"synonyms" mapstructure:"synonyms"`
}

// DefaultColumns returns the column names used by the published station file.
func DefaultColumns() Columns {
	return Columns{
		Name:      ColumnStationName,
		Latitude:  ColumnLatitude,
		Longitude: ColumnLongitude,
		Radius:    ColumnRadius,
		Depth:     ColumnDepth,
		Medium:    ColumnMedium,
		Synonyms:  ColumnSynonyms,
	}
}

// withDefaults fills empty column names from DefaultColumns.
func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	for _, pair := range []struct{ dst *string; def string }{
		{&c.Name, d.Name},
		{&c.Latitude, d.Latitude},
		{&c.Longitude, d.Longitude},
		{&c.Radius, d.Radius},
		{&c.Depth, d.Depth},
		{&c.Medium, d.Medium},
		{&c.Synonyms, d.Synonyms},
	} {
		if *pair.dst == "" {
			*pair.dst = pair.def
		}
	}
	return c
}

// Record is one row of the reference table. Text fields that were empty or
// missing in the source are "".
type Record struct {
	Name string

	// Encoded DDMM.mmm position, as written in the table and parsed
	LatitudeDM  string
	LongitudeDM string
	Latitude    float64
	Longitude   float64

	// Radius is the out-of-bounds radius in meters; HasRadius is false when the cell was empty.
	Radius    float64
	HasRadius bool

	Depth    string
	Medium   string
	Synonyms []string

	// Cells holds every column of the row by header name
	Cells map[string]string
}

// Position returns the record's encoded position.
func (r *Record) Position() geo.Position {
	return geo.EncodedPosition(r.Latitude, r.Longitude)
}

// StationInfo is an immutable view of a station, optionally annotated with the
// distance to a queried position.
type StationInfo struct {
	Station     string            `json:"station" yaml:"station"`
	Latitude    float64           `json:"latitude" yaml:"latitude"`
	Longitude   float64           `json:"longitude" yaml:"longitude"`
	LatitudeDM  string            `json:"latitude_dm" yaml:"latitude_dm"`
	LongitudeDM string            `json:"longitude_dm" yaml:"longitude_dm"`
	Depth       string            `json:"depth" yaml:"depth"`
	Radius      float64           `json:"radius" yaml:"radius"`
	Medium      string            `json:"medium" yaml:"medium"`
	Synonyms    []string          `json:"synonyms" yaml:"synonyms"`
	Columns     map[string]string `json:"columns" yaml:"columns"`

	// Set by proximity queries only
	HasDistance bool `json:"has_distance" yaml:"has_distance"`
	Distance    int  `json:"distance" yaml:"distance"`
	Acceptable  bool `json:"acceptable" yaml:"acceptable"`
}

// newStationInfo derives the view from a record. Slices and maps are copied.
func newStationInfo(r *Record) StationInfo {
	lat, lon := r.Position().Decimal()
	return StationInfo{
		Station:     r.Name,
		Latitude:    lat,
		Longitude:   lon,
		LatitudeDM:  r.LatitudeDM,
		LongitudeDM: r.LongitudeDM,
		Depth:       r.Depth,
		Radius:      r.Radius,
		Medium:      r.Medium,
		Synonyms:    slices.Clone(r.Synonyms),
		Columns:     maps.Clone(r.Cells),
	}
}

// clone returns a deep copy so cached values are never shared with callers.
func (s StationInfo) clone() StationInfo {
	s.Synonyms = slices.Clone(s.Synonyms)
	s.Columns = maps.Clone(s.Columns)
	return s
}
