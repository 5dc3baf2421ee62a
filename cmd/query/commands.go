package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sharksmhi/ctdstations/internal/app"
	"github.com/sharksmhi/ctdstations/internal/conf"
	"github.com/sharksmhi/ctdstations/internal/export"
	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/stations"
)

// Opener builds the application for a command. Tests replace it.
type Opener func(cmd *cobra.Command, settings *conf.Settings, opts ...app.Option) (*app.App, error)

// DefaultOpener loads the station table using the command's context.
func DefaultOpener(cmd *cobra.Command, settings *conf.Settings, opts ...app.Option) (*app.App, error) {
	return app.Open(cmd.Context(), settings, opts...)
}

// Commands returns the station query commands.
func Commands(settings *conf.Settings, open Opener) []*cobra.Command {
	if open == nil {
		open = DefaultOpener
	}
	return []*cobra.Command{
		listCommand(settings, open),
		infoCommand(settings, open),
		nearestCommand(settings, open),
		distanceCommand(settings, open),
		refreshCommand(settings, open),
	}
}

func listCommand(settings *conf.Settings, open Opener) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List station names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd, settings)
			if err != nil {
				return err
			}
			defer a.Close()

			names := a.Resolver.StationList()
			if xlsxPath != "" {
				infos := make([]stations.StationInfo, 0, len(names))
				for _, name := range names {
					if info, ok := a.Resolver.StationInfo(name); ok {
						infos = append(infos, info)
					}
				}
				return newExporter(a).SaveStations(xlsxPath, infos)
			}

			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write the station list to an XLSX workbook")
	return cmd
}

func infoCommand(settings *conf.Settings, open Opener) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "info <name>",
		Short: "Show a station by name or synonym",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return validateFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, settings)
			if err != nil {
				return err
			}
			defer a.Close()

			info, ok := a.Resolver.StationInfo(args[0])
			if !ok {
				return fmt.Errorf("station %q not found", args[0])
			}
			return writeStation(cmd.OutOrStdout(), format, &info)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", FormatText, "Output format: text, json or yaml")
	return cmd
}

func nearestCommand(settings *conf.Settings, open Opener) *cobra.Command {
	var (
		format   string
		xlsxPath string
	)
	cmd := &cobra.Command{
		Use:   "nearest [flags] [--] <lat> <lon>",
		Short: "Find the station closest to a position",
		Long: "Find the station closest to a position. Coordinates are DDMM.mmm unless\n" +
			"stations.decimalqueries is set or --decimal is given.\n\n" +
			"Put -- before negative coordinates so they are not read as flags.",
		Example: "  ctdstations nearest 5533.2 1824\n  ctdstations nearest -- -3352.5 1825.3",
		Args: cobra.ExactArgs(2),
		PreRunE: func(*cobra.Command, []string) error {
			return validateFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, lon, err := parsePosition(args[0], args[1])
			if err != nil {
				return err
			}

			a, err := open(cmd, settings)
			if err != nil {
				return err
			}
			defer a.Close()

			info, ok := a.Resolver.NearestStationAt(lat, lon)
			if xlsxPath != "" {
				row := export.NearestRow{QueryLat: lat, QueryLon: lon, Info: info, Found: ok}
				if err := newExporter(a).SaveNearest(xlsxPath, []export.NearestRow{row}); err != nil {
					return err
				}
			}
			if !ok {
				return fmt.Errorf("no station found")
			}
			return writeStation(cmd.OutOrStdout(), format, &info)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", FormatText, "Output format: text, json or yaml")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the result to an XLSX workbook")
	return cmd
}

func distanceCommand(settings *conf.Settings, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "distance [--] <lat> <lon> <name>",
		Short: "Distance in meters from a position to a station",
		Long: "Distance in meters from a position to a station.\n\n" +
			"Put -- before negative coordinates so they are not read as flags.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, lon, err := parsePosition(args[0], args[1])
			if err != nil {
				return err
			}

			a, err := open(cmd, settings)
			if err != nil {
				return err
			}
			defer a.Close()

			d, ok := a.Resolver.DistanceToStation(lat, lon, args[2])
			if !ok {
				return fmt.Errorf("station %q not found", args[2])
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func refreshCommand(settings *conf.Settings, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download the primary station table into the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if settings.Stations.PrimaryURL == "" {
				return fmt.Errorf("stations.primaryurl is not configured")
			}
			a, err := open(cmd, settings, app.WithRefresh(true))
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%d rows)\n", a.Store.Path(), a.Store.Len())
			return nil
		},
	}
}

func newExporter(a *app.App) *export.Exporter {
	return export.New(
		export.WithLogger(logger.Global().Module("export")),
		export.WithRecorder(a.Metrics.Stations),
	)
}

// parsePosition parses a latitude and longitude argument. A comma decimal
// separator is accepted.
func parsePosition(latArg, lonArg string) (lat, lon float64, err error) {
	if lat, err = strconv.ParseFloat(strings.ReplaceAll(latArg, ",", "."), 64); err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q", latArg)
	}
	if lon, err = strconv.ParseFloat(strings.ReplaceAll(lonArg, ",", "."), 64); err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q", lonArg)
	}
	return lat, lon, nil
}
