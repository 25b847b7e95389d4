package api

import (
	"errors"
	"fmt"
)

// Remote service errors.
// These errors are returned when the scan service rejects a request or
// cannot be reached.
//
// Design decision: We define specific sentinel errors rather than wrapping
// all failures generically. This allows callers to handle different failure
// modes appropriately (e.g., treat a missing scan as a cache-fallback case,
// but fail fast on an unreachable service).
var (
	// ErrNotFound is returned when the service has no scan with the
	// requested identifier. The lifecycle load path uses this to
	// distinguish "scan does not exist" from "service is down".
	ErrNotFound = errors.New("scan not found")

	// ErrInvalidBaseURL is returned when the configured API base URL is
	// not a syntactically valid absolute URL.
	ErrInvalidBaseURL = errors.New("invalid API base URL: expected absolute http(s) URL")

	// ErrInvalidTargetURL is returned when a scan target is not a
	// syntactically valid absolute URL. Validation happens client-side
	// before any network call is made.
	ErrInvalidTargetURL = errors.New("invalid target URL: expected absolute URL")

	// ErrMissingAPIKey is returned when a chat request is attempted
	// without a stored credential.
	ErrMissingAPIKey = errors.New("chat API key is required")
)

// StatusError reports a non-success HTTP response from the scan service.
// It wraps ErrNotFound for 404 responses so callers can match with
// errors.Is without inspecting status codes.
type StatusError struct {
	// Operation is the logical operation that failed (e.g. "get scan").
	Operation string

	// Code is the HTTP status code of the response.
	Code int

	// Detail is the service-provided error detail, if the response body
	// carried one.
	Detail string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: service returned %d: %s", e.Operation, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: service returned %d", e.Operation, e.Code)
}

// Is makes a 404 StatusError match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == 404
}
