package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharksmhi/ctdstations/internal/conf"
	"github.com/sharksmhi/ctdstations/internal/errors"
	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/stations"
)

const table = "STATION_NAME\tLAT_DM\tLONG_DM\tWADEP\tMEDIA\tSYNONYM_NAMES\tOUT_OF_BOUNDS_RADIUS\n" +
	"BY31 LANDSORTSDJ\t5533.0\t1824.0\t459\tVatten\tBY31\t500\n" +
	"BY15 GOTLANDSDJ\t5719.2\t2003.0\t\t\t\t1000\n"

// fetcherFunc adapts a function to stations.Fetcher.
type fetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	dir := t.TempDir()
	backup := filepath.Join(dir, "station.txt")
	require.NoError(t, os.WriteFile(backup, []byte(table), 0o644))
	return &conf.Settings{
		Stations: conf.StationsSettings{
			BackupPath:     backup,
			BackupEncoding: "utf-8",
			QueryCacheTTL:  time.Minute,
		},
	}
}

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(&bytes.Buffer{}, logger.LogLevelInfo, time.UTC)
}

func TestOpenBackup(t *testing.T) {
	a, err := Open(t.Context(), testSettings(t), WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, stations.SourceBackup, a.Store.Source())
	info, ok := a.Resolver.NearestStationAt(5533.2, 1824.0)
	require.True(t, ok)
	assert.Equal(t, "BY31 LANDSORTSDJ", info.Station)
	assert.Equal(t, 370, info.Distance)
	assert.NotNil(t, a.Metrics.Registry())
}

func TestOpenDecimalQueries(t *testing.T) {
	s := testSettings(t)
	s.Stations.DecimalQueries = true

	a, err := Open(t.Context(), s, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	info, ok := a.Resolver.NearestStationAt(55.55, 18.4)
	require.True(t, ok)
	assert.Equal(t, 0, info.Distance)
	assert.True(t, info.Acceptable)
}

func TestOpenWithFilterFile(t *testing.T) {
	s := testSettings(t)
	s.Stations.FilterFile = filepath.Join(t.TempDir(), "filter.txt")
	s.Stations.FilterEncoding = "utf-8"
	require.NoError(t, os.WriteFile(s.Stations.FilterFile, []byte("BY15 GOTLANDSDJ\nUNKNOWN\n"), 0o644))

	a, err := Open(t.Context(), s, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, []string{"BY15 GOTLANDSDJ"}, a.Resolver.StationList())
}

func TestOpenMissingFilterFile(t *testing.T) {
	s := testSettings(t)
	s.Stations.FilterFile = filepath.Join(t.TempDir(), "missing.txt")

	_, err := Open(t.Context(), s, WithLogger(quietLogger()))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestOpenRefreshUsesFetcher(t *testing.T) {
	s := testSettings(t)
	s.Stations.PrimaryURL = "https://example.org/data/station.txt"
	s.Stations.PrimaryCachePath = filepath.Join(t.TempDir(), "station.txt")
	s.Stations.PrimaryEncoding = "utf-8"

	calls := 0
	fetcher := fetcherFunc(func(_ context.Context, url string) ([]byte, error) {
		calls++
		assert.Equal(t, s.Stations.PrimaryURL, url)
		return []byte(table), nil
	})

	a, err := Open(t.Context(), s, WithLogger(quietLogger()), WithFetcher(fetcher), WithRefresh(true))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, 1, calls)
	assert.Equal(t, stations.SourcePrimary, a.Store.Source())
	assert.Equal(t, s.Stations.PrimaryCachePath, a.Store.Path())
}

func TestOpenSourceUnavailable(t *testing.T) {
	s := &conf.Settings{Stations: conf.StationsSettings{BackupPath: filepath.Join(t.TempDir(), "none.txt")}}

	_, err := Open(t.Context(), s, WithLogger(quietLogger()))
	require.ErrorIs(t, err, stations.ErrSourceUnavailable)
}

func TestFetchTimeout(t *testing.T) {
	s := &conf.Settings{}
	assert.Equal(t, time.Duration(-1), fetchTimeout(s))
	s.Stations.FetchTimeout = 5 * time.Second
	assert.Equal(t, 5*time.Second, fetchTimeout(s))
}
