package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/openmined/plugsync/internal/credential"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "PLUGSYNC"
	configFileName = "config"
)

var home, _ = homedir.Dir()

// SetDefaults registers every key so env overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("directories", []string{})
	v.SetDefault("file_types", []string{})
	v.SetDefault("ignore", []string{})
	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("retry_interval", DefaultRetryInterval)
	v.SetDefault("debounce", DefaultDebounce)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("retry_count", DefaultRetryCount)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("watch", true)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("journal_path", "")
	v.SetDefault("http_addr", "")
	v.SetDefault("http_token", "")
	v.SetDefault("credential.source", credential.SourceEnv)
	v.SetDefault("credential.env", credential.DefaultEnvVar)
	v.SetDefault("credential.dotenv", "")
	v.SetDefault("credential.file", "")
	v.SetDefault("credential.secret_id", "")
	v.SetDefault("credential.field", "")
	v.SetDefault("credential.region", "")
	v.SetDefault("credential.endpoint", "")
}

// Load reads the config file at path, or searches the default locations when path
// is empty, applies PLUGSYNC_* environment overrides and validates the result.
// A missing file is fine as long as the environment supplies the required keys.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDataDir)
		v.AddConfigPath(filepath.Join(home, ".config", "plugsync"))
		v.SetConfigName(configFileName)
		v.SetConfigType("toml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case path != "" && errors.Is(err, fs.ErrNotExist):
			return nil, newConfigError("config", fmt.Sprintf("config file '%s' does not exist", path))
		case !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist):
			return nil, WrapConfigError("", fmt.Errorf("read '%s': %w", v.ConfigFileUsed(), err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, WrapConfigError("", fmt.Errorf("decode: %w", err))
	}
	cfg.Path = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
