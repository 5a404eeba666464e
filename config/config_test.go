package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[jasper]
url = "https://reports.example.com/jasperserver"
username = "reporter"
password = "hunter2"
organization = "acme"
auth_method = "login"
timeout_seconds = 30
requests_per_minute = 120

[log]
json = true
`), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://reports.example.com/jasperserver", cfg.Jasper.URL)
	assert.Equal(t, "reporter", cfg.Jasper.Username)
	assert.Equal(t, "hunter2", cfg.Jasper.Password)
	assert.Equal(t, "acme", cfg.Jasper.Organization)
	assert.Equal(t, "login", cfg.Jasper.AuthMethod)
	assert.Equal(t, 30, cfg.Jasper.TimeoutSeconds)
	assert.Equal(t, 120, cfg.Jasper.RequestsPerMinute)
	assert.True(t, cfg.Log.JSON)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile_DefaultsFillGaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[jasper]
password = "s3cret"
`), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/jasperserver", cfg.Jasper.URL)
	assert.Equal(t, "jasperadmin", cfg.Jasper.Username)
	assert.Equal(t, "s3cret", cfg.Jasper.Password)
	assert.Equal(t, "basic", cfg.Jasper.AuthMethod)
	assert.Equal(t, 60, cfg.Jasper.TimeoutSeconds)
	assert.Equal(t, 60, cfg.Jasper.RequestsPerMinute)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Jasper: JasperConfig{
			URL:               "http://localhost:8080/jasperserver",
			Username:          "jasperadmin",
			AuthMethod:        "basic",
			TimeoutSeconds:    60,
			RequestsPerMinute: 60,
		}}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.Jasper.URL = "" }, "jasper.url"},
		{"empty username", func(c *Config) { c.Jasper.Username = "" }, "jasper.username"},
		{"bad auth method", func(c *Config) { c.Jasper.AuthMethod = "oauth" }, "jasper.auth_method"},
		{"zero timeout", func(c *Config) { c.Jasper.TimeoutSeconds = 0 }, "jasper.timeout_seconds"},
		{"negative timeout", func(c *Config) { c.Jasper.TimeoutSeconds = -5 }, "jasper.timeout_seconds"},
		{"negative rate", func(c *Config) { c.Jasper.RequestsPerMinute = -1 }, "jasper.requests_per_minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	// 0 requests per minute means unlimited, not invalid
	cfg := valid()
	cfg.Jasper.RequestsPerMinute = 0
	require.NoError(t, cfg.Validate())
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	require.NoError(t, WriteStarter(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "config holds credentials")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "jasperadmin", cfg.Jasper.Username)

	// Second write must not clobber an edited file
	err = WriteStarter(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
