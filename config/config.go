// Package config loads the read-once process configuration that the CLI
// uses to construct cluster API clients. Core packages never read
// configuration themselves; they receive fully-constructed collaborators.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

// The directory under the user's home that holds the config file.
const configDir = ".config/maestro"

// Config holds the process-wide client settings.
type Config struct {
	// The base URL of the cluster API.
	Host string

	// Auth indicates whether the cluster requires authentication.
	Auth bool

	// The username to authenticate as when Auth is set.
	Username string

	// A reference into the external secrets store holding the password
	// for Username. Resolution of the reference is delegated to the
	// store; this package only carries the pointer.
	SecretID string
}

// Load reads the configuration from the given file path, falling back to
// $HOME/.config/maestro/config.yml when path is empty. Every key can be
// overridden through the environment using the MAESTRO_ prefix
// (e.g. MAESTRO_HOST).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("maestro")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, xerrors.Errorf("locate home directory: %w", err)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(home, configDir))
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file on the default search path is tolerated as
		// long as the environment provides the required keys.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !xerrors.As(err, &notFound) {
			return nil, xerrors.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Host:     v.GetString("host"),
		Auth:     v.GetBool("auth"),
		Username: v.GetString("username"),
		SecretID: v.GetString("secret_id"),
	}
	if cfg.Host == "" {
		return nil, xerrors.Errorf("cluster host not configured; set it in the config file or via MAESTRO_HOST")
	}
	if cfg.Auth && cfg.Username == "" {
		return nil, xerrors.Errorf("authentication enabled but no username configured")
	}
	return cfg, nil
}
