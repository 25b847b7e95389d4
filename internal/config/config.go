package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The polling defaults mirror the scan service's observed completion
// behavior: most scans finish within a minute, so a one-second interval
// with a two-minute ceiling covers the normal case without hammering
// the service.
const (
	// DefaultAPIBase is the scan service endpoint used when neither the
	// SITESENSE_API_BASE environment variable nor a config file sets one.
	DefaultAPIBase = "http://localhost:8000"

	// EnvAPIBase is the environment variable overriding the API base URL.
	EnvAPIBase = "SITESENSE_API_BASE"

	// DefaultRequestTimeout is the per-request HTTP timeout. Scan reads
	// are small JSON documents; 30 seconds is generous.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultPollInterval is the delay between scan status polls.
	DefaultPollInterval = 1 * time.Second

	// DefaultMaxPollAttempts bounds a polling sequence. Combined with
	// DefaultPollInterval this gives a two-minute ceiling per scan.
	DefaultMaxPollAttempts = 120

	// DefaultFailureRedisplayDelay is how long a failure message stays on
	// screen before the scan is re-loaded into its terminal display.
	DefaultFailureRedisplayDelay = 3 * time.Second

	// DefaultTimeoutFallbackDelay is how long to wait after the poll
	// budget is exhausted before attempting one direct status read.
	DefaultTimeoutFallbackDelay = 2 * time.Second

	// DefaultCreateErrorResetDelay is how long a creation error stays on
	// screen before returning to the idle input state.
	DefaultCreateErrorResetDelay = 3 * time.Second

	// DefaultBatchSize is the number of concurrent scan lifecycles when
	// scanning multiple URLs. Scans are server-side heavy; a small batch
	// avoids queueing the service solid.
	DefaultBatchSize = 3

	// AppName is the application name used for XDG directory paths.
	AppName = "sitesense"
)

// Config holds all configuration options for SiteSense.
// This struct is populated from CLI flags, environment, and the optional
// config file, then passed through the application via dependency
// injection rather than global state.
type Config struct {
	// APIBase is the remote scan service root URL.
	APIBase string

	// RequestTimeout is the per-request HTTP timeout.
	RequestTimeout time.Duration

	// PollInterval is the delay between status polls for a queued scan.
	PollInterval time.Duration

	// MaxPollAttempts bounds the number of polls per scan lifecycle.
	MaxPollAttempts int

	// FailureRedisplayDelay is the pause before a failed scan is
	// re-loaded into its terminal display.
	FailureRedisplayDelay time.Duration

	// TimeoutFallbackDelay is the pause before the single follow-up read
	// after the poll budget is exhausted.
	TimeoutFallbackDelay time.Duration

	// CreateErrorResetDelay is the pause before returning to idle after a
	// failed scan creation.
	CreateErrorResetDelay time.Duration

	// BatchSize is the number of concurrent lifecycles when scanning
	// multiple targets.
	BatchSize int

	// Verbose enables debug-level log output.
	Verbose bool

	// JSONReport selects JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for reports. Empty means stdout.
	ReportFile string

	// DBDir is the directory holding the local cache database.
	// Defaults to the XDG data directory.
	DBDir string

	// ConfigFilePath is an explicit config file path. Empty means search
	// the standard locations.
	ConfigFilePath string

	// Targets is the list of URLs to scan.
	Targets []string
}

// NewConfig creates a Config with default values. Defaults are non-zero,
// so relying on zero values would silently misconfigure polling.
func NewConfig() *Config {
	return &Config{
		APIBase:               DefaultAPIBase,
		RequestTimeout:        DefaultRequestTimeout,
		PollInterval:          DefaultPollInterval,
		MaxPollAttempts:       DefaultMaxPollAttempts,
		FailureRedisplayDelay: DefaultFailureRedisplayDelay,
		TimeoutFallbackDelay:  DefaultTimeoutFallbackDelay,
		CreateErrorResetDelay: DefaultCreateErrorResetDelay,
		BatchSize:             DefaultBatchSize,
		DBDir:                 XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for SiteSense.
// On Linux: ~/.local/share/sitesense
// On macOS: ~/Library/Application Support/sitesense
// On Windows: %LOCALAPPDATA%\sitesense
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for SiteSense.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid. It returns the first
// problem found; fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.APIBase == "" {
		return ErrNoAPIBase
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.MaxPollAttempts <= 0 {
		return ErrInvalidPollAttempts
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
