package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".sitesense"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .sitesense configuration file.
// Every field is optional; unset fields keep their defaults.
type File struct {
	// APIBase overrides the remote scan service URL.
	APIBase string `yaml:"apiBase,omitempty"`

	// RequestTimeout overrides the per-request HTTP timeout.
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`

	// PollInterval overrides the delay between status polls.
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`

	// MaxPollAttempts overrides the polling budget.
	MaxPollAttempts int `yaml:"maxPollAttempts,omitempty"`

	// BatchSize overrides the concurrent-scan limit.
	BatchSize int `yaml:"batchSize,omitempty"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound; callers decide
// whether that matters based on whether the path was explicit.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .sitesense in the current directory
// 3. Look for .sitesense in the user's home directory
//
// Returns the path if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply merges file settings into cfg. Only set fields override.
func (cf *File) Apply(cfg *Config) {
	if cf.APIBase != "" {
		cfg.APIBase = cf.APIBase
	}
	if cf.RequestTimeout > 0 {
		cfg.RequestTimeout = cf.RequestTimeout
	}
	if cf.PollInterval > 0 {
		cfg.PollInterval = cf.PollInterval
	}
	if cf.MaxPollAttempts > 0 {
		cfg.MaxPollAttempts = cf.MaxPollAttempts
	}
	if cf.BatchSize > 0 {
		cfg.BatchSize = cf.BatchSize
	}
}

// ApplyEnvironment overlays environment settings onto cfg.
// Precedence is flags > environment > config file > defaults; the CLI
// calls this after Apply and before flag handling.
func ApplyEnvironment(cfg *Config) {
	if base := os.Getenv(EnvAPIBase); base != "" {
		cfg.APIBase = base
	}
}
