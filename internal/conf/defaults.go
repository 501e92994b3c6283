// defaults.go: registers default values for all settings before config is read.
package conf

import (
	"time"

	"github.com/spf13/viper"
)

func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Main
	viper.SetDefault("main.name", "species-atlas")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.maxsize", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	// Web server
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.log.enabled", true)

	// Security
	viper.SetDefault("security.host", "")
	viper.SetDefault("security.autotls", false)
	viper.SetDefault("security.sessionsecret", "")
	viper.SetDefault("security.sessionduration", 7*24*time.Hour)
	viper.SetDefault("security.basicauth.enabled", true)
	viper.SetDefault("security.basicauth.username", "")
	viper.SetDefault("security.basicauth.password", "")

	// Output
	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "species.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "species")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "species_atlas")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	// Chart
	viper.SetDefault("chart.source", "data/animal_speeds.csv")
	viper.SetDefault("chart.fetchtimeout", 10)
}
