package lifecycle

import "errors"

// Lifecycle errors.
var (
	// ErrSuperseded is returned when a Create or Load sequence is
	// abandoned because a newer sequence was started on the same
	// controller. Side effects of the superseded sequence were discarded.
	ErrSuperseded = errors.New("scan lifecycle superseded by a newer operation")

	// ErrPollTimeout is returned when the polling budget is exhausted and
	// the single follow-up read still finds the scan queued. This is
	// distinct from a failed scan: the scan may yet complete server-side.
	ErrPollTimeout = errors.New("scan timed out: polling budget exhausted")
)
