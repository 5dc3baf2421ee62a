// env.go - Environment variable configuration for ctdstations
package conf

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CTDSTATIONS_STATIONS_BACKUPPATH.
const EnvPrefix = "CTDSTATIONS"

// configureEnvironmentVariables sets up environment variable support for v.
// Nested keys use "_" in place of ".".
func configureEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}
