// Package query implements the station query commands.
package query

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/sharksmhi/ctdstations/internal/stations"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// writeValue writes v as JSON or YAML.
func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// writeStation writes info in the requested format.
func writeStation(w io.Writer, format string, info *stations.StationInfo) error {
	if format != FormatText {
		return writeValue(w, format, info)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Station:\t%s\n", info.Station)
	fmt.Fprintf(tw, "Position:\t%s %s\n", info.LatitudeDM, info.LongitudeDM)
	fmt.Fprintf(tw, "Decimal:\t%.6f %.6f\n", info.Latitude, info.Longitude)
	if info.Depth != "" {
		fmt.Fprintf(tw, "Depth:\t%s\n", info.Depth)
	}
	if info.Medium != "" {
		fmt.Fprintf(tw, "Medium:\t%s\n", info.Medium)
	}
	if len(info.Synonyms) > 0 {
		fmt.Fprintf(tw, "Synonyms:\t%s\n", strings.Join(info.Synonyms, ", "))
	}
	fmt.Fprintf(tw, "Radius:\t%g m\n", info.Radius)
	if info.HasDistance {
		fmt.Fprintf(tw, "Distance:\t%d m\n", info.Distance)
		fmt.Fprintf(tw, "Acceptable:\t%s\n", yesNo(info.Acceptable))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func validateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format %q, use text, json or yaml", format)
}
