package config

import "github.com/tonimelisma/picasa-silo/internal/picasa"

// Default values for configuration options. These are "layer 0" of the
// override chain.
const (
	defaultPhotoSize    = string(picasa.SizeMedium)
	defaultTokenBackend = TokenBackendSQLite
	defaultLogLevel     = "info"
	defaultLogFormat    = "auto"
	defaultListen       = "127.0.0.1:8765"
	defaultUser         = "default"
)

// Token backends.
const (
	TokenBackendSQLite = "sqlite"
	TokenBackendFile   = "file"
)

// DefaultConfig returns a Config populated with all default values. Storage
// paths stay empty here and are filled from the data directory by Resolve.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:         picasa.DefaultBaseURL,
			AuthURL:         picasa.DefaultAuthURL,
			SessionTokenURL: picasa.DefaultSessionTokenURL,
		},
		Silo: SiloConfig{
			PhotoSize:    defaultPhotoSize,
			AlbumResults: picasa.DefaultAlbumResults,
		},
		Storage: StorageConfig{
			TokenBackend: defaultTokenBackend,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Server: ServerConfig{
			Listen: defaultListen,
			Events: true,
		},
	}
}
