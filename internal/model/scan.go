package model

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a scan as reported by the
// remote service. A scan is born queued and moves forward exactly once,
// to either completed or failed. There are no other values on the wire.
type Status string

// Scan lifecycle states.
const (
	// StatusQueued means the scan has been accepted but has not finished.
	StatusQueued Status = "queued"

	// StatusCompleted means the scan finished and module results are available.
	StatusCompleted Status = "completed"

	// StatusFailed means the scan finished with an error.
	// The record carries an ErrorMessage describing the failure.
	StatusFailed Status = "failed"
)

// statusRank orders statuses by lifecycle progress. Terminal states share
// the same rank because a scan reaches exactly one of them and never moves
// between them.
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusCompleted, StatusFailed:
		return 1
	default:
		// Unknown statuses sort before queued so they can never
		// overwrite a known state in the cache.
		return -1
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AtLeast reports whether s is at least as advanced in the scan lifecycle
// as other. The cache uses this to refuse writes that would regress a
// record from a terminal state back to queued (a stale poll response
// arriving after completion, for example).
func (s Status) AtLeast(other Status) bool {
	return s.rank() >= other.rank()
}

// ModuleResult is the output of a single analysis module for a scan.
// ResultJSON is an opaque document whose shape differs per module; the
// aggregated_report module carries the summary report (see report.go).
type ModuleResult struct {
	// ModuleName identifies the analysis module (e.g. "security_hygiene",
	// "aggregated_report").
	ModuleName string `json:"module_name"`

	// Status is the module-level completion status reported by the service.
	Status string `json:"status,omitempty"`

	// ResultJSON is the module's raw result document.
	ResultJSON json.RawMessage `json:"result_json,omitempty"`

	// CreatedAt is when the module result was produced.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ScanRecord is one analysis run against a target URL. It is the unit of
// exchange with both the remote service and the local cache; updates are
// always whole-record replacements, never partial field merges.
type ScanRecord struct {
	// ID is the opaque identifier assigned by the remote service on
	// creation. It is the join key between the remote and local stores.
	ID string `json:"id"`

	// URL is the target being analyzed. Immutable after creation.
	URL string `json:"url"`

	// NormalizedURL is the canonical form of URL as computed server-side.
	NormalizedURL string `json:"normalized_url,omitempty"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// CreatedAt is the service-assigned creation timestamp, used for
	// newest-first ordering in history listings.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the last modification timestamp, if the service sent one.
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// ErrorMessage describes why the scan failed. Only present when
	// Status is StatusFailed.
	ErrorMessage string `json:"error_message,omitempty"`

	// ModuleResults holds per-module outputs in service order. Only
	// present when Status is StatusCompleted.
	ModuleResults []ModuleResult `json:"module_results,omitempty"`
}

// AggregatedReportModuleName is the distinguished module whose result
// carries the summary report.
const AggregatedReportModuleName = "aggregated_report"

// ModuleResult returns the result for the named module, or nil if the
// record has no result for it.
func (r *ScanRecord) ModuleResult(name string) *ModuleResult {
	for i := range r.ModuleResults {
		if r.ModuleResults[i].ModuleName == name {
			return &r.ModuleResults[i]
		}
	}
	return nil
}

// AggregatedReport decodes the aggregated_report module result.
// It returns nil with no error when the record carries no aggregated
// report (e.g. the scan is not completed yet).
func (r *ScanRecord) AggregatedReport() (*AggregatedReport, error) {
	mr := r.ModuleResult(AggregatedReportModuleName)
	if mr == nil || len(mr.ResultJSON) == 0 {
		return nil, nil
	}

	var report AggregatedReport
	if err := json.Unmarshal(mr.ResultJSON, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// DisplayError returns the user-facing failure message for a failed scan.
// The service may omit error_message; the fallback matches what the
// original frontend displayed.
func (r *ScanRecord) DisplayError() string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	return "Unknown error"
}
