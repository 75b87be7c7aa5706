package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[api]
base_url = "http://localhost:9000/feed"
auth_url = "http://localhost:9000/auth?next="
session_token_url = "http://localhost:9000/session"

[silo]
photo_size = "s1024"
album_results = 50
icon_url = "https://example.com/picasa.png"

[storage]
token_backend = "file"
database_path = "/var/lib/picasa/options.db"
token_dir = "/var/lib/picasa/tokens"

[logging]
log_level = "debug"
log_format = "json"

[server]
listen = ":9090"
events = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/feed", cfg.API.BaseURL)
	assert.Equal(t, "http://localhost:9000/auth?next=", cfg.API.AuthURL)
	assert.Equal(t, "http://localhost:9000/session", cfg.API.SessionTokenURL)
	assert.Equal(t, "s1024", cfg.Silo.PhotoSize)
	assert.Equal(t, 50, cfg.Silo.AlbumResults)
	assert.Equal(t, "https://example.com/picasa.png", cfg.Silo.IconURL)
	assert.Equal(t, TokenBackendFile, cfg.Storage.TokenBackend)
	assert.Equal(t, "/var/lib/picasa/options.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "/var/lib/picasa/tokens", cfg.Storage.TokenDir)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.False(t, cfg.Server.Events)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `
[silo]
photo_size = "s75"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s75", cfg.Silo.PhotoSize)
	assert.Equal(t, DefaultConfig().API, cfg.API)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
}

func TestLoad_EmptyPhotoSizeIsOriginal(t *testing.T) {
	path := writeTestConfig(t, `
[silo]
photo_size = ""
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Silo.PhotoSize)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, `[silo`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeTestConfig(t, `
[silo]
photo_sise = "s75"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "photo_size"`)
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeTestConfig(t, `
[silo]
photo_size = "s9000"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "photo_size")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOrDefault_ExistingFile(t *testing.T) {
	path := writeTestConfig(t, `
[logging]
log_level = "warn"
`)

	cfg, err := LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.LogLevel)
}

func TestResolve_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: filepath.Join(dir, "none.toml")})
	require.NoError(t, err)

	assert.Equal(t, "default", resolved.User)
	assert.Equal(t, filepath.Join(dir, "none.toml"), resolved.Path)
	assert.Equal(t, "s500", resolved.Silo.PhotoSize)
	assert.NotEmpty(t, resolved.Storage.DatabasePath)
	assert.NotEmpty(t, resolved.Storage.TokenDir)
}

func TestResolve_ConfigPathPrecedence(t *testing.T) {
	envPath := writeTestConfig(t, "[logging]\nlog_level = \"warn\"\n")
	cliPath := writeTestConfig(t, "[logging]\nlog_level = \"error\"\n")

	resolved, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "warn", resolved.Logging.LogLevel)

	resolved, err = Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath})
	require.NoError(t, err)
	assert.Equal(t, "error", resolved.Logging.LogLevel)
	assert.Equal(t, cliPath, resolved.Path)
}

func TestResolve_UserPrecedence(t *testing.T) {
	path := writeTestConfig(t, "")

	resolved, err := Resolve(EnvOverrides{ConfigPath: path, User: "env-user"}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "env-user", resolved.User)

	resolved, err = Resolve(EnvOverrides{ConfigPath: path, User: "env-user"}, CLIOverrides{User: "cli-user"})
	require.NoError(t, err)
	assert.Equal(t, "cli-user", resolved.User)
}

func TestResolve_EnvPhotoSizeOverridesFile(t *testing.T) {
	path := writeTestConfig(t, "[silo]\nphoto_size = \"s75\"\n")
	size := "s240"

	resolved, err := Resolve(EnvOverrides{ConfigPath: path, PhotoSize: &size}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "s240", resolved.Silo.PhotoSize)
}

func TestResolve_InvalidEnvPhotoSize(t *testing.T) {
	path := writeTestConfig(t, "")
	size := "huge"

	_, err := Resolve(EnvOverrides{ConfigPath: path, PhotoSize: &size}, CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "photo_size")
}

func TestResolve_KeepsExplicitStoragePaths(t *testing.T) {
	path := writeTestConfig(t, `
[storage]
database_path = "/srv/options.db"
token_dir = "/srv/tokens"
`)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "/srv/options.db", resolved.Storage.DatabasePath)
	assert.Equal(t, "/srv/tokens", resolved.Storage.TokenDir)
}
