package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigDir_NonEmpty(t *testing.T) {
	dir := DefaultConfigDir()
	assert.NotEmpty(t, dir)
	assert.Contains(t, dir, appName)
}

func TestDefaultDataDir_NonEmpty(t *testing.T) {
	dir := DefaultDataDir()
	assert.NotEmpty(t, dir)
	assert.Contains(t, dir, appName)
}

func TestDefaultConfigPath_EndsWithConfigToml(t *testing.T) {
	assert.True(t, strings.HasSuffix(DefaultConfigPath(), "config.toml"))
}

func TestDefaultDatabasePath_UnderDataDir(t *testing.T) {
	assert.Equal(t, filepath.Join(DefaultDataDir(), "options.db"), DefaultDatabasePath())
}

func TestDefaultTokenDir_UnderDataDir(t *testing.T) {
	assert.Equal(t, filepath.Join(DefaultDataDir(), "tokens"), DefaultTokenDir())
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == platformDarwin {
		t.Skip("XDG variables are ignored on macOS")
	}

	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	assert.Equal(t, filepath.Join("/xdg/config", appName), DefaultConfigDir())
}

func TestDefaultDataDir_XDG(t *testing.T) {
	if runtime.GOOS == platformDarwin {
		t.Skip("XDG variables are ignored on macOS")
	}

	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	assert.Equal(t, filepath.Join("/xdg/data", appName), DefaultDataDir())
}

func TestDefaultConfigDir_HomeFallback(t *testing.T) {
	if runtime.GOOS == platformDarwin {
		t.Skip("macOS uses Application Support")
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/testuser")
	assert.Equal(t, filepath.Join("/home/testuser", ".config", appName), DefaultConfigDir())
}

func TestDefaultDataDir_MacOS(t *testing.T) {
	if runtime.GOOS != platformDarwin {
		t.Skip("macOS only")
	}

	t.Setenv("HOME", "/Users/testuser")
	assert.Equal(t,
		filepath.Join("/Users/testuser", "Library", "Application Support", appName),
		DefaultDataDir())
}
