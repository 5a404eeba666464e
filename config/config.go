// Package config loads the jasper-mcp configuration with Viper.
//
// Sources, in precedence order: explicit file path, JASPER_MCP_* environment
// variables, config file in the default location, built-in defaults.
package config

// Config is the root jasper-mcp configuration.
type Config struct {
	Jasper JasperConfig `mapstructure:"jasper"`
	Log    LogConfig    `mapstructure:"log"`
}

// JasperConfig configures the JasperReports Server connection.
type JasperConfig struct {
	URL               string `mapstructure:"url"`                 // e.g. http://reports.internal:8080/jasperserver
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	Organization      string `mapstructure:"organization"`        // multi-tenant qualifier, empty for single-tenant
	AuthMethod        string `mapstructure:"auth_method"`         // "basic" or "login"
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`     // per-request transport timeout
	RequestsPerMinute int    `mapstructure:"requests_per_minute"` // 0 = unlimited
}

// LogConfig configures logger output.
type LogConfig struct {
	JSON bool `mapstructure:"json"` // JSON structured output instead of console lines
}
