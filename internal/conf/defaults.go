// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/sharksmhi/ctdstations/internal/stations"
)

// DefaultPrimaryURL is the published station reference table.
const DefaultPrimaryURL = "https://raw.githubusercontent.com/sharksmhi/flask_station_app/main/data/station.txt"

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("stations.primaryurl", DefaultPrimaryURL)
	v.SetDefault("stations.primarycachepath", "")
	v.SetDefault("stations.primaryencoding", stations.DefaultEncoding)
	v.SetDefault("stations.backuppath", "station.txt")
	v.SetDefault("stations.backupencoding", stations.DefaultEncoding)
	v.SetDefault("stations.refreshprimary", false)
	v.SetDefault("stations.filterfile", "")
	v.SetDefault("stations.filterencoding", stations.DefaultEncoding)
	v.SetDefault("stations.fetchtimeout", 30*time.Second)
	v.SetDefault("stations.querycachettl", 5*time.Minute)
	v.SetDefault("stations.decimalqueries", false)

	cols := stations.DefaultColumns()
	v.SetDefault("stations.columns.name", cols.Name)
	v.SetDefault("stations.columns.latitude", cols.Latitude)
	v.SetDefault("stations.columns.longitude", cols.Longitude)
	v.SetDefault("stations.columns.radius", cols.Radius)
	v.SetDefault("stations.columns.depth", cols.Depth)
	v.SetDefault("stations.columns.medium", cols.Medium)
	v.SetDefault("stations.columns.synonyms", cols.Synonyms)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.nocolor", false)
	v.SetDefault("logging.file", "")

	v.SetDefault("webserver.enabled", false)
	v.SetDefault("webserver.listen", "127.0.0.1:8080")
	v.SetDefault("webserver.ratelimit", 20.0)
	v.SetDefault("webserver.rateburst", 40)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
}
