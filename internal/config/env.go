package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig    = "PICASA_SILO_CONFIG"
	EnvUser      = "PICASA_SILO_USER"
	EnvPhotoSize = "PICASA_SILO_PHOTO_SIZE"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string  // PICASA_SILO_CONFIG: override config file path
	User       string  // PICASA_SILO_USER: identity for token storage
	PhotoSize  *string // PICASA_SILO_PHOTO_SIZE: nil when unset; "" selects original size
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	env := EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		User:       os.Getenv(EnvUser),
	}

	if size, ok := os.LookupEnv(EnvPhotoSize); ok {
		env.PhotoSize = &size
	}

	return env
}
