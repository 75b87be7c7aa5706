package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AllSizesAccepted(t *testing.T) {
	for _, size := range []string{"s75", "s100", "s240", "s500", "s1024", ""} {
		cfg := DefaultConfig()
		cfg.Silo.PhotoSize = size
		assert.NoError(t, Validate(cfg), "size %q", size)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/feed" }, "base_url"},
		{"ftp auth url", func(c *Config) { c.API.AuthURL = "ftp://example.com/" }, "auth_url"},
		{"bad session url", func(c *Config) { c.API.SessionTokenURL = "::" }, "session_token_url"},
		{"unknown size", func(c *Config) { c.Silo.PhotoSize = "s9000" }, "photo_size"},
		{"zero album results", func(c *Config) { c.Silo.AlbumResults = 0 }, "album_results"},
		{"bad icon url", func(c *Config) { c.Silo.IconURL = "picasa.png" }, "icon_url"},
		{"token backend", func(c *Config) { c.Storage.TokenBackend = "redis" }, "token_backend"},
		{"log level", func(c *Config) { c.Logging.LogLevel = "trace" }, "log_level"},
		{"log format", func(c *Config) { c.Logging.LogFormat = "xml" }, "log_format"},
		{"listen", func(c *Config) { c.Server.Listen = "8765" }, "listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Silo.AlbumResults = -1
	cfg.Logging.LogLevel = "loud"
	cfg.Server.Listen = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "album_results")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "listen")
}

func TestValidate_EmptyIconURLAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Silo.IconURL = ""
	assert.NoError(t, Validate(cfg))
}
