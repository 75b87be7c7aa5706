// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for picasa-silo. Values resolve through
// a four-layer override chain: defaults -> config file -> environment ->
// CLI flags.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	API     APIConfig     `toml:"api" json:"api"`
	Silo    SiloConfig    `toml:"silo" json:"silo"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Server  ServerConfig  `toml:"server" json:"server"`
}

// APIConfig points the silo at the photo service. The defaults are the
// public Picasa endpoints; tests and proxies override them.
type APIConfig struct {
	BaseURL         string `toml:"base_url" json:"base_url"`
	AuthURL         string `toml:"auth_url" json:"auth_url"`
	SessionTokenURL string `toml:"session_token_url" json:"session_token_url"`
}

// SiloConfig controls how listings are rendered. photo_size is the default
// rendition used until the host stores its own preference.
type SiloConfig struct {
	PhotoSize    string `toml:"photo_size" json:"photo_size"`
	AlbumResults int    `toml:"album_results" json:"album_results"`
	IconURL      string `toml:"icon_url" json:"icon_url"`
}

// StorageConfig selects where session tokens live. The "sqlite" backend
// shares the host options database with the size preference; "file"
// writes one token file per identity.
type StorageConfig struct {
	TokenBackend string `toml:"token_backend" json:"token_backend"`
	DatabasePath string `toml:"database_path" json:"database_path"`
	TokenDir     string `toml:"token_dir" json:"token_dir"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level" json:"log_level"`
	LogFormat string `toml:"log_format" json:"log_format"`
}

// ServerConfig controls the local HTTP host harness.
type ServerConfig struct {
	Listen string `toml:"listen" json:"listen"`
	Events bool   `toml:"events" json:"events"`
}

// CLIOverrides holds values from CLI flags. Empty strings mean "not
// specified".
type CLIOverrides struct {
	ConfigPath string // --config
	User       string // --user
}

// Resolved is the effective configuration after all override layers.
type Resolved struct {
	Config
	Path string // config file path, whether or not it exists
	User string // identity tokens are stored under
}
