package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("jasper.url", "http://localhost:8080/jasperserver")
	v.SetDefault("jasper.username", "jasperadmin")
	v.SetDefault("jasper.auth_method", "basic")
	v.SetDefault("jasper.timeout_seconds", 60)
	v.SetDefault("jasper.requests_per_minute", 60) // polite default against shared servers

	v.SetDefault("log.json", false)
}
