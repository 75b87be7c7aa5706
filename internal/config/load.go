package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal and carry "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Config file, or defaults if it does not exist
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Environment
	if env.PhotoSize != nil {
		cfg.Silo.PhotoSize = *env.PhotoSize
	}

	// 4. Identity: CLI > env > "default"
	user := defaultUser
	if env.User != "" {
		user = env.User
	}

	if cli.User != "" {
		user = cli.User
	}

	fillStoragePaths(&cfg.Storage)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &Resolved{Config: *cfg, Path: cfgPath, User: user}, nil
}

// fillStoragePaths replaces empty storage paths with the platform defaults.
func fillStoragePaths(s *StorageConfig) {
	if s.DatabasePath == "" {
		s.DatabasePath = DefaultDatabasePath()
	}

	if s.TokenDir == "" {
		s.TokenDir = DefaultTokenDir()
	}
}
