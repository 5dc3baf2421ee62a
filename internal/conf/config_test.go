package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharksmhi/ctdstations/internal/errors"
	"github.com/sharksmhi/ctdstations/internal/geo"
	"github.com/sharksmhi/ctdstations/internal/stations"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ctdstations")

	settings, err := load(viper.New(), []string{dir})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err, "default config should be written")

	assert.Equal(t, DefaultPrimaryURL, settings.Stations.PrimaryURL)
	assert.Equal(t, "station.txt", settings.Stations.BackupPath)
	assert.Equal(t, "cp1252", settings.Stations.PrimaryEncoding)
	assert.Equal(t, 30*time.Second, settings.Stations.FetchTimeout)
	assert.Equal(t, 5*time.Minute, settings.Stations.QueryCacheTTL)
	assert.Equal(t, stations.DefaultColumns(), settings.Stations.Columns)
	assert.Equal(t, "127.0.0.1:8080", settings.WebServer.Listen)
	assert.False(t, settings.Telemetry.Enabled)
}

func TestLoadReadsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
debug: true
stations:
  primaryurl: ""
  backuppath: /data/station.txt
  backupencoding: utf-8
  querycachettl: 0s
  decimalqueries: true
  columns:
    name: NAME
webserver:
  enabled: true
  listen: ":9090"
`), 0o644))

	settings, err := load(viper.New(), []string{dir})
	require.NoError(t, err)

	assert.True(t, settings.Debug)
	assert.Empty(t, settings.Stations.PrimaryURL)
	assert.Equal(t, "/data/station.txt", settings.Stations.BackupPath)
	assert.Equal(t, time.Duration(0), settings.Stations.QueryCacheTTL)
	assert.Equal(t, "NAME", settings.Stations.Columns.Name)
	assert.Equal(t, stations.ColumnLatitude, settings.Stations.Columns.Latitude, "unset columns keep defaults")
	assert.Equal(t, geo.EncodingDecimal, settings.Stations.QueryEncoding())
	assert.Equal(t, ":9090", settings.WebServer.Listen)
	assert.Equal(t, "debug", settings.LoggerConfig().Level)

	src := settings.Stations.SourceConfig()
	assert.Equal(t, "/data/station.txt", src.BackupPath)
	assert.Equal(t, "utf-8", src.BackupEncoding)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("stations:\n  backuppath: from-file.txt\n"), 0o644))
	t.Setenv("CTDSTATIONS_STATIONS_BACKUPPATH", "from-env.txt")
	t.Setenv("CTDSTATIONS_STATIONS_REFRESHPRIMARY", "true")

	settings, err := load(viper.New(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, "from-env.txt", settings.Stations.BackupPath)
	assert.True(t, settings.Stations.RefreshPrimary)
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("stations:\n  primaryencoding: klingon\n"), 0o644))

	_, err := load(viper.New(), []string{dir})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "primaryencoding")
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stations: [unclosed"), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	_, err := load(v, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	settings, err := load(viper.New(), []string{dir})
	require.NoError(t, err)

	settings.Stations.BackupPath = "saved.txt"
	settings.Stations.QueryCacheTTL = time.Minute
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, SaveYAMLConfig(path, settings))

	reloaded, err := load(viper.New(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, "saved.txt", reloaded.Stations.BackupPath)
	assert.Equal(t, time.Minute, reloaded.Stations.QueryCacheTTL)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestEmbeddedDefaultConfigMatchesDefaults(t *testing.T) {
	fromFile := viper.New()
	fromFile.SetConfigType("yaml")
	require.NoError(t, fromFile.ReadConfig(stringsReader(getDefaultConfig())))

	fromDefaults := viper.New()
	setDefaultConfig(fromDefaults)

	var a, b Settings
	require.NoError(t, fromFile.Unmarshal(&a))
	require.NoError(t, fromDefaults.Unmarshal(&b))
	assert.Equal(t, b, a)
}
