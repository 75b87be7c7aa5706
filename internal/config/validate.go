package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/tonimelisma/picasa-silo/internal/picasa"
)

// Validate checks all configuration values and returns all errors found,
// joined, so a single run reports every problem.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateSilo(&cfg.Silo)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateServer(&cfg.Server)...)

	return errors.Join(errs...)
}

func validateAPI(a *APIConfig) []error {
	var errs []error

	errs = append(errs, validateHTTPURL("base_url", a.BaseURL)...)
	errs = append(errs, validateHTTPURL("auth_url", a.AuthURL)...)
	errs = append(errs, validateHTTPURL("session_token_url", a.SessionTokenURL)...)

	return errs
}

func validateHTTPURL(field, raw string) []error {
	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", field, err)}
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []error{fmt.Errorf("%s: must be an absolute http or https URL, got %q", field, raw)}
	}

	return nil
}

func validateSilo(s *SiloConfig) []error {
	var errs []error

	if _, err := picasa.ParseSize(s.PhotoSize); err != nil {
		errs = append(errs, fmt.Errorf("photo_size: %w", err))
	}

	if s.AlbumResults < 1 {
		errs = append(errs, fmt.Errorf("album_results: must be >= 1, got %d", s.AlbumResults))
	}

	if s.IconURL != "" {
		errs = append(errs, validateHTTPURL("icon_url", s.IconURL)...)
	}

	return errs
}

var validTokenBackends = map[string]bool{
	TokenBackendSQLite: true,
	TokenBackendFile:   true,
}

func validateStorage(s *StorageConfig) []error {
	if !validTokenBackends[s.TokenBackend] {
		return []error{fmt.Errorf("token_backend: must be one of sqlite, file; got %q", s.TokenBackend)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

func validateServer(s *ServerConfig) []error {
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return []error{fmt.Errorf("listen: %w", err)}
	}

	return nil
}
