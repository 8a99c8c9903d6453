package config

import "github.com/kelseyhightower/envconfig"

// EnvPrefix is prepended to every environment variable, e.g.
// SCRIPTGUARD_DATABASE_DSN.
const EnvPrefix = "SCRIPTGUARD"

// parseEnv overlays SCRIPTGUARD_* variables. Unset variables leave the
// current value untouched; a malformed value panics like a bad config file.
func parseEnv(config *Config) {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		panic(err)
	}
}
