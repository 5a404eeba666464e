package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/jasper-mcp/errors"
)

// starterConfig mirrors Config with toml tags and comments stripped down
// to what a first-time setup needs to edit.
type starterConfig struct {
	Jasper starterJasper `toml:"jasper"`
	Log    starterLog    `toml:"log"`
}

type starterJasper struct {
	URL               string `toml:"url"`
	Username          string `toml:"username"`
	Password          string `toml:"password"`
	Organization      string `toml:"organization"`
	AuthMethod        string `toml:"auth_method"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

type starterLog struct {
	JSON bool `toml:"json"`
}

// WriteStarter writes a starter config file with the built-in defaults.
// Refuses to overwrite an existing file.
func WriteStarter(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return errors.Newf("config file %s already exists", configPath)
	}

	starter := starterConfig{
		Jasper: starterJasper{
			URL:               "http://localhost:8080/jasperserver",
			Username:          "jasperadmin",
			Password:          "jasperadmin",
			AuthMethod:        "basic",
			TimeoutSeconds:    60,
			RequestsPerMinute: 60,
		},
	}

	payload, err := toml.Marshal(starter)
	if err != nil {
		return errors.Wrap(err, "failed to marshal starter config")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create config directory for %s", configPath)
	}
	// 0600: the file holds credentials
	if err := os.WriteFile(configPath, payload, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", configPath)
	}
	return nil
}
