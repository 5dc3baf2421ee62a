// Package conf provides configuration management for ctdstations.
package conf

import "github.com/sharksmhi/ctdstations/internal/logger"

// GetLogger returns the config package logger scoped to the conf module.
// The logger is fetched from the global logger each time so it follows
// the centralized logger set after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module("conf")
}
