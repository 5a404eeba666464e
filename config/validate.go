package config

import "github.com/teranos/jasper-mcp/errors"

// Validate checks that the configuration is usable before any connection
// is attempted. URL shape is validated by the jasper client; this covers
// what Viper cannot express.
func (c *Config) Validate() error {
	if c.Jasper.URL == "" {
		return errors.New("jasper.url cannot be empty")
	}
	if c.Jasper.Username == "" {
		return errors.New("jasper.username cannot be empty")
	}

	switch c.Jasper.AuthMethod {
	case "basic", "login":
	default:
		return errors.Newf("jasper.auth_method must be \"basic\" or \"login\", got %q", c.Jasper.AuthMethod)
	}

	if c.Jasper.TimeoutSeconds <= 0 {
		return errors.Newf("jasper.timeout_seconds must be > 0, got %d", c.Jasper.TimeoutSeconds)
	}

	// 0 = unlimited, negative = invalid
	if c.Jasper.RequestsPerMinute < 0 {
		return errors.Newf("jasper.requests_per_minute must be >= 0, got %d", c.Jasper.RequestsPerMinute)
	}

	return nil
}
