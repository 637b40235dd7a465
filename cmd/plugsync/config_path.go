package main

import (
	"os"
	"path/filepath"

	"github.com/openmined/plugsync/internal/client/config"
	"github.com/openmined/plugsync/internal/utils"
	"github.com/spf13/cobra"
)

const configPathEnv = "PLUGSYNC_CONFIG_PATH"

// resolveConfigPath picks the config file: the --config flag, then
// $PLUGSYNC_CONFIG_PATH, then the first existing default location.
func resolveConfigPath(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil && f.Changed {
		return f.Value.String()
	}

	if envPath := os.Getenv(configPathEnv); envPath != "" {
		return envPath
	}

	for _, candidate := range configCandidates() {
		if utils.FileExists(candidate) {
			return candidate
		}
	}

	return config.DefaultConfigPath
}

// loadConfigPath is the path handed to the loader. A path the user named is
// always returned so a missing file is reported. The default location is only
// used when it exists, otherwise the config comes from the environment.
func loadConfigPath(cmd *cobra.Command) string {
	path := resolveConfigPath(cmd)
	explicit := (cmd.Flag("config") != nil && cmd.Flag("config").Changed) || os.Getenv(configPathEnv) != ""
	if !explicit && !utils.FileExists(path) {
		return ""
	}
	return path
}

func configCandidates() []string {
	candidates := []string{"config.toml", config.DefaultConfigPath}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "plugsync", "config.toml"))
	}
	return candidates
}
