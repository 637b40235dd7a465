package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/openmined/plugsync/internal/credential"
	"github.com/openmined/plugsync/internal/utils"
)

const (
	DefaultServerURL      = "https://api.codegpt.co/v1"
	DefaultInterval       = 60 * time.Second
	DefaultRetryInterval  = 10 * time.Second
	DefaultDebounce       = 2 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultRetryCount     = 2
	DefaultWorkers        = 4
	maxWorkers            = 64

	logFileName = "plugsync.log"
)

var (
	DefaultDataDir    = filepath.Join(home, ".plugsync")
	DefaultConfigPath = filepath.Join(DefaultDataDir, "config.toml")
)

type Config struct {
	Directories    []string          `mapstructure:"directories" json:"directories"`
	FileTypes      []string          `mapstructure:"file_types" json:"file_types"`
	Ignore         []string          `mapstructure:"ignore" json:"ignore"`
	ServerURL      string            `mapstructure:"server_url" json:"server_url"`
	Interval       time.Duration     `mapstructure:"interval" json:"interval"`
	RetryInterval  time.Duration     `mapstructure:"retry_interval" json:"retry_interval"`
	Debounce       time.Duration     `mapstructure:"debounce" json:"debounce"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout" json:"request_timeout"`
	RetryCount     int               `mapstructure:"retry_count" json:"retry_count"`
	Workers        int               `mapstructure:"workers" json:"workers"`
	Watch          bool              `mapstructure:"watch" json:"watch"`
	DataDir        string            `mapstructure:"data_dir" json:"data_dir"`
	JournalPath    string            `mapstructure:"journal_path" json:"journal_path"`
	HTTPAddr       string            `mapstructure:"http_addr" json:"http_addr"`
	HTTPToken      string            `mapstructure:"http_token" json:"-"`
	Credential     credential.Config `mapstructure:"credential" json:"credential"`
	Path           string            `mapstructure:"-" json:"-"`
}

// Validate normalises the config in place and reports the first invalid field.
func (c *Config) Validate() error {
	dirs, err := resolveAll(c.Directories)
	if err != nil {
		return newConfigError("directories", err.Error())
	}
	if len(dirs) == 0 {
		return newConfigError("directories", "at least one directory is required")
	}
	c.Directories = dirs

	c.FileTypes = normalizeExtensions(c.FileTypes)
	if len(c.FileTypes) == 0 {
		return newConfigError("file_types", "at least one file type is required")
	}

	if err := validateURL(c.ServerURL); err != nil {
		return newConfigError("server_url", err.Error())
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")

	for field, d := range map[string]time.Duration{
		"interval":        c.Interval,
		"retry_interval":  c.RetryInterval,
		"request_timeout": c.RequestTimeout,
	} {
		if d <= 0 {
			return newConfigError(field, fmt.Sprintf("must be positive, got %s", d))
		}
	}
	if c.Debounce < 0 {
		return newConfigError("debounce", "must not be negative")
	}

	if c.RetryCount < 0 {
		return newConfigError("retry_count", "must not be negative")
	}

	if c.Workers < 1 || c.Workers > maxWorkers {
		return newConfigError("workers", fmt.Sprintf("must be between 1 and %d", maxWorkers))
	}

	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.DataDir, err = utils.ResolvePath(c.DataDir); err != nil {
		return newConfigError("data_dir", err.Error())
	}

	if c.JournalPath != "" {
		if c.JournalPath, err = utils.ResolvePath(c.JournalPath); err != nil {
			return newConfigError("journal_path", err.Error())
		}
	}

	if c.Path != "" {
		if c.Path, err = utils.ResolvePath(c.Path); err != nil {
			return newConfigError("path", err.Error())
		}
	}

	return nil
}

// LogFilePath is where the daemon writes its log file.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.DataDir, "logs", logFileName)
}

func resolveAll(paths []string) ([]string, error) {
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		abs, err := utils.ResolvePath(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		if !slices.Contains(resolved, abs) {
			resolved = append(resolved, abs)
		}
	}
	return resolved, nil
}

// normalizeExtensions strips the leading dot so ".py" and "py" mean the same.
// Case is preserved, matching is case-sensitive.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" || slices.Contains(out, ext) {
			continue
		}
		out = append(out, ext)
	}
	return out
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("missing")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
