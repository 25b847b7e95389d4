package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoAPIBase is returned when the remote API base URL is empty.
	ErrNoAPIBase = errors.New("no API base URL configured")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	// A zero or negative timeout would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidPollInterval is returned when the poll interval is not
	// positive. A zero interval would hammer the service with requests.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")

	// ErrInvalidPollAttempts is returned when the poll attempt budget is
	// not positive. A budget of zero would time every scan out immediately.
	ErrInvalidPollAttempts = errors.New("invalid poll attempts: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no concurrent scans can run.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
