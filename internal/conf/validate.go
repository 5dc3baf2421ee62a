// conf/validate.go

package conf

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"

	"github.com/sharksmhi/ctdstations/internal/stations"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateStationsSettings(&settings.Stations); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLoggingSettings(&settings.Logging); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateStationsSettings checks sources, encodings and durations
func validateStationsSettings(s *StationsSettings) error {
	if s.PrimaryURL == "" && s.BackupPath == "" {
		return fmt.Errorf("stations: at least one of primaryurl and backuppath must be set")
	}
	if s.PrimaryURL != "" {
		u, err := url.Parse(s.PrimaryURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("stations: primaryurl must be an http(s) URL, got %q", s.PrimaryURL)
		}
	}
	if s.RefreshPrimary && s.PrimaryURL == "" {
		return fmt.Errorf("stations: refreshprimary requires primaryurl")
	}
	for key, name := range map[string]string{
		"primaryencoding": s.PrimaryEncoding,
		"backupencoding":  s.BackupEncoding,
		"filterencoding":  s.FilterEncoding,
	} {
		if _, err := stations.LookupEncoding(name); err != nil {
			return fmt.Errorf("stations: %s: %w", key, err)
		}
	}
	if s.FetchTimeout < 0 {
		return fmt.Errorf("stations: fetchtimeout must not be negative")
	}
	if s.QueryCacheTTL < 0 {
		return fmt.Errorf("stations: querycachettl must not be negative")
	}
	return nil
}

// validateLoggingSettings checks level and format names
func validateLoggingSettings(s *LoggingSettings) error {
	switch strings.ToLower(s.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", s.Level)
	}
	switch strings.ToLower(s.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", s.Format)
	}
	return nil
}

// validateWebServerSettings checks the rate limit and, when the API is enabled, the listen address
func validateWebServerSettings(s *WebServerSettings) error {
	if s.RateLimit < 0 || math.IsNaN(s.RateLimit) || math.IsInf(s.RateLimit, 0) {
		return fmt.Errorf("webserver: ratelimit must be a finite value of 0 or more, got %v", s.RateLimit)
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		return fmt.Errorf("webserver: rateburst must be at least 1 when ratelimit is set, got %d", s.RateBurst)
	}
	if !s.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return fmt.Errorf("webserver: invalid listen address %q: %w", s.Listen, err)
	}
	return nil
}

// validateTelemetrySettings requires a DSN when telemetry is enabled
func validateTelemetrySettings(s *TelemetrySettings) error {
	if s.Enabled && s.DSN == "" {
		return fmt.Errorf("telemetry: dsn is required when telemetry is enabled")
	}
	return nil
}
