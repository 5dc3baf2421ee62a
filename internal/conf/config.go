// config.go: settings struct for ctdstations and functions to load it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sharksmhi/ctdstations/internal/errors"
	"github.com/sharksmhi/ctdstations/internal/geo"
	"github.com/sharksmhi/ctdstations/internal/logger"
	"github.com/sharksmhi/ctdstations/internal/stations"
)

//go:embed config.yaml
var configFiles embed.FS

// StationsSettings contains reference table sources and query options.
type StationsSettings struct {
	PrimaryURL       string           // published station table
	PrimaryCachePath string           // local copy of the primary table
	PrimaryEncoding  string           // encoding of the primary table
	BackupPath       string           // fallback table on local disk
	BackupEncoding   string           // encoding of the backup table
	RefreshPrimary   bool             // download the primary table before loading
	FilterFile       string           // optional station allowlist
	FilterEncoding   string           // encoding of the allowlist
	FetchTimeout     time.Duration    // download timeout, 0 disables
	QueryCacheTTL    time.Duration    // nearest-station result cache lifetime, 0 disables
	DecimalQueries   bool             // query coordinates are decimal degrees
	Columns          stations.Columns // table header names
}

// LoggingSettings contains console and file logging options.
type LoggingSettings struct {
	Level    string // trace, debug, info, warn, error
	Format   string // text or json
	Timezone string // Local, UTC or IANA name
	NoColor  bool   // disable ANSI colors
	File     string // optional JSON log file
}

// WebServerSettings contains settings for the HTTP query API.
type WebServerSettings struct {
	Enabled   bool    // start the API with serve
	Listen    string  // host:port
	RateLimit float64 // query requests per second per client, 0 disables
	RateBurst int     // requests allowed above RateLimit at once
}

// TelemetrySettings contains settings for error reporting.
type TelemetrySettings struct {
	Enabled bool   // report errors to Sentry
	DSN     string // Sentry DSN
}

// Settings contains all configuration options for ctdstations.
type Settings struct {
	Debug     bool
	Stations  StationsSettings
	Logging   LoggingSettings
	WebServer WebServerSettings
	Telemetry TelemetrySettings
}

// SourceConfig converts the station settings for stations.Load.
func (s *StationsSettings) SourceConfig() stations.SourceConfig {
	return stations.SourceConfig{
		PrimaryURL:       s.PrimaryURL,
		PrimaryCachePath: s.PrimaryCachePath,
		PrimaryEncoding:  s.PrimaryEncoding,
		BackupPath:       s.BackupPath,
		BackupEncoding:   s.BackupEncoding,
		RefreshPrimary:   s.RefreshPrimary,
		Columns:          s.Columns,
	}
}

// QueryEncoding returns the coordinate encoding expected for queries.
func (s *StationsSettings) QueryEncoding() geo.Encoding {
	if s.DecimalQueries {
		return geo.EncodingDecimal
	}
	return geo.EncodingDecimalMinutes
}

// LoggerConfig converts the logging settings for logger.NewCentralLogger.
func (s *Settings) LoggerConfig() *logger.LoggingConfig {
	level := s.Logging.Level
	if s.Debug {
		level = string(logger.LogLevelDebug)
	}
	return &logger.LoggingConfig{
		Level:    level,
		Format:   s.Logging.Format,
		Timezone: s.Logging.Timezone,
		NoColor:  s.Logging.NoColor,
		File:     s.Logging.File,
	}
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into the settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return nil, err
	}

	settings, err := load(viper.GetViper(), configPaths)
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// LoadFile reads settings from an explicit config file, with defaults and
// environment overrides applied.
func LoadFile(path string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v := viper.GetViper()
	v.SetConfigFile(path)
	settings, err := load(v, nil)
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// load initializes v, reads the config and validates the result.
func load(v *viper.Viper, configPaths []string) (*Settings, error) {
	if err := initViper(v, configPaths); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "init-viper").
			Build()
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return settings, nil
}

// initViper sets defaults and environment bindings, then reads the
// configuration file. When configPaths is empty the config file set on v is used.
func initViper(v *viper.Viper, configPaths []string) error {
	setDefaultConfig(v)
	configureEnvironmentVariables(v)

	if len(configPaths) > 0 {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	err := v.ReadInConfig()
	if err == nil {
		GetLogger().Debug("Configuration loaded", logger.String("path", v.ConfigFileUsed()))
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) && len(configPaths) > 0 {
		return createDefaultConfig(v, configPaths[0])
	}
	return fmt.Errorf("error reading config file: %w", err)
}

// createDefaultConfig writes the embedded config.yaml to dir and reads it
func createDefaultConfig(v *viper.Viper, dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FileError(err, dir)
	}
	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return errors.FileError(err, configPath)
	}

	GetLogger().Info("Created default config file", logger.String("path", configPath))
	v.SetConfigFile(configPath)
	return v.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// The file is embedded at build time
		panic(err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading it on first use.
// It exits the process if the configuration cannot be loaded.
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				GetLogger().Error("Error loading settings", logger.Error(err))
				os.Exit(1)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig writes settings to configPath atomically. Comments and
// ordering in an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "marshal").
			Build()
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return errors.FileError(err, configPath)
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return errors.FileError(err, tempName)
	}
	if err := tempFile.Close(); err != nil {
		return errors.FileError(err, tempName)
	}
	if err := os.Rename(tempName, configPath); err != nil {
		return errors.FileError(err, configPath)
	}
	return nil
}
