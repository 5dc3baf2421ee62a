package query

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/sharksmhi/ctdstations/internal/app"
	"github.com/sharksmhi/ctdstations/internal/conf"
	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/stations"
)

const table = "STATION_NAME\tLAT_DM\tLONG_DM\tWADEP\tMEDIA\tSYNONYM_NAMES\tOUT_OF_BOUNDS_RADIUS\n" +
	"BY31 LANDSORTSDJ\t5533.0\t1824.0\t459\tVatten\tBY31<or>LANDSORTSDJUPET\t500\n" +
	"ÖLAND NORRA\t5540.0\t1824.0\t\t\tOland Synonym\t500\n"

// run executes args against the query commands and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	backup := filepath.Join(t.TempDir(), "station.txt")
	require.NoError(t, os.WriteFile(backup, []byte(table), 0o644))
	settings := &conf.Settings{Stations: conf.StationsSettings{BackupPath: backup, BackupEncoding: "utf-8"}}

	quiet := logger.NewSlogLogger(&bytes.Buffer{}, logger.LogLevelError, time.UTC)
	open := func(cmd *cobra.Command, s *conf.Settings, opts ...app.Option) (*app.App, error) {
		return app.Open(cmd.Context(), s, append(opts, app.WithLogger(quiet))...)
	}

	root := &cobra.Command{Use: "ctdstations", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(Commands(settings, open)...)

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "BY31 LANDSORTSDJ\nÖLAND NORRA\n", out)
}

func TestListCommandXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.xlsx")
	out, err := run(t, "list", "--xlsx", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Stations")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestInfoCommand(t *testing.T) {
	out, err := run(t, "info", "by31")
	require.NoError(t, err)
	assert.Contains(t, out, "BY31 LANDSORTSDJ")
	assert.Contains(t, out, "5533.0 1824.0")
	assert.Contains(t, out, "Vatten")
	assert.NotContains(t, out, "Distance")

	_, err = run(t, "info", "nowhere")
	require.Error(t, err)

	_, err = run(t, "info", "by31", "--output", "xml")
	require.Error(t, err)
}

func TestNearestCommandText(t *testing.T) {
	out, err := run(t, "nearest", "5533.2", "1824,0")
	require.NoError(t, err)
	assert.Contains(t, out, "BY31 LANDSORTSDJ")
	assert.Contains(t, out, "370 m")
	assert.Contains(t, out, "yes")
}

func TestNearestCommandJSON(t *testing.T) {
	out, err := run(t, "nearest", "5539.5", "1824", "-o", "json")
	require.NoError(t, err)

	var info stations.StationInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "ÖLAND NORRA", info.Station)
	assert.Equal(t, 925, info.Distance)
	assert.False(t, info.Acceptable)
}

func TestNearestCommandYAMLAndXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nearest.xlsx")
	out, err := run(t, "nearest", "5533.2", "1824", "--output", "yaml", "--xlsx", path)
	require.NoError(t, err)

	var info stations.StationInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &info))
	assert.Equal(t, "BY31 LANDSORTSDJ", info.Station)
	assert.Equal(t, 370, info.Distance)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestNearestCommandBadInput(t *testing.T) {
	_, err := run(t, "nearest", "north", "1824")
	require.Error(t, err)
	_, err = run(t, "nearest", "5533")
	require.Error(t, err)
}

func TestNearestCommandSouthernHemisphere(t *testing.T) {
	_, err := run(t, "nearest", "-5533.0", "1824.0")
	require.Error(t, err, "a leading minus is read as a shorthand flag")

	out, err := run(t, "nearest", "--", "-5533.0", "1824.0")
	require.NoError(t, err)
	assert.Contains(t, out, "BY31 LANDSORTSDJ")
	assert.Contains(t, out, "12338244 m")

	out, err = run(t, "distance", "--", "-5533.0", "1824.0", "ÖLAND NORRA")
	require.NoError(t, err)
	assert.Equal(t, "12351200\n", out)
}

func TestDistanceCommand(t *testing.T) {
	out, err := run(t, "distance", "5533.0", "1824.0", "oland synonym")
	require.NoError(t, err)
	assert.Equal(t, "12956\n", out)

	_, err = run(t, "distance", "5533.0", "1824.0", "nowhere")
	require.Error(t, err)
}

func TestRefreshCommandRequiresURL(t *testing.T) {
	_, err := run(t, "refresh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primaryurl")
}
