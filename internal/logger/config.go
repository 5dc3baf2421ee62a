package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level        string            `yaml:"level" json:"level"`                 // default level: trace, debug, info, warn, error
	Format       string            `yaml:"format" json:"format"`               // console format: "text" (tint) or "json"
	Timezone     string            `yaml:"timezone" json:"timezone"`           // "Local", "UTC", or IANA timezone name
	NoColor      bool              `yaml:"no_color" json:"no_color"`           // disable ANSI colors in text output
	File         string            `yaml:"file" json:"file"`                   // optional JSON log file path
	ModuleLevels map[string]string `yaml:"module_levels" json:"module_levels"` // per-module level overrides
}

// Default values for logging configuration.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = FormatText
	FormatText       = "text"
	FormatJSON       = "json"
)

// applyConfigDefaults fills in zero values
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = DefaultLogLevel
	}
	if cfg.Format == "" {
		cfg.Format = DefaultLogFormat
	}
}
