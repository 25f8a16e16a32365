// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "redaction-consensus")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "consensus.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("consensus.autoconfirmthreshold", 0.75)
	viper.SetDefault("consensus.corroborationquorum", 3)
	viper.SetDefault("consensus.lengthslack", 3)
	viper.SetDefault("consensus.contextsimilarity", 0.6)
	viper.SetDefault("consensus.cascademaxdepth", 2)
	viper.SetDefault("consensus.cascadescanlimit", 5000)

	viper.SetDefault("security.requireauth", true)
	viper.SetDefault("security.admintoken", "")

	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.log.enabled", true)
	viper.SetDefault("webserver.log.path", "webserver.log")
	viper.SetDefault("webserver.log.rotation", RotationDaily)
	viper.SetDefault("webserver.log.maxsize", 1048576)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "redactions.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "redactions")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "redactions")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
}
