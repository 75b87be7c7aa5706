package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const platformDarwin = "darwin"

// Application directory name used across all platforms.
const appName = "picasa-silo"

// File names inside the config and data directories.
const (
	configFileName   = "config.toml"
	databaseFileName = "options.db"
	tokenDirName     = "tokens"
)

// DefaultConfigDir returns the platform-specific directory for config files.
// Respects XDG_CONFIG_HOME; macOS uses ~/Library/Application Support.
func DefaultConfigDir() string {
	return platformDir("XDG_CONFIG_HOME", filepath.Join(".config", appName))
}

// DefaultDataDir returns the platform-specific directory for the options
// database and token files. Respects XDG_DATA_HOME; macOS collapses config
// and data into one directory.
func DefaultDataDir() string {
	return platformDir("XDG_DATA_HOME", filepath.Join(".local", "share", appName))
}

// platformDir resolves an XDG-style directory: the XDG variable when set,
// Application Support on macOS, otherwise homeRel under the home directory.
func platformDir(xdgVar, homeRel string) string {
	if runtime.GOOS != platformDarwin {
		if xdg := os.Getenv(xdgVar); xdg != "" {
			return filepath.Join(xdg, appName)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	if runtime.GOOS == platformDarwin {
		return filepath.Join(home, "Library", "Application Support", appName)
	}

	return filepath.Join(home, homeRel)
}

// DefaultConfigPath returns the full path to the default config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// DefaultDatabasePath returns the default options database path.
func DefaultDatabasePath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, databaseFileName)
}

// DefaultTokenDir returns the default directory for token files.
func DefaultTokenDir() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, tokenDirName)
}
