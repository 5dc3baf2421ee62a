// conf/utils.go config path helpers
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/sharksmhi/ctdstations/internal/errors"
)

const (
	osWindows = "windows"
	appName   = "ctdstations"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// If one of them already holds a config.yaml, only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			".",
			filepath.Join(homeDir, "AppData", "Roaming", appName),
		}
	default:
		configPaths = []string{
			".",
			filepath.Join(homeDir, ".config", appName),
			"/etc/" + appName,
		}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	// Nothing found; the first writable user location gets the default config
	return configPaths[1:], nil
}

// FindConfigFile locates the configuration file.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Component("conf").
		Category(errors.CategoryNotFound).
		Context("operation", "find-config-file").
		Build()
}
