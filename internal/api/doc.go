// Package api provides the HTTP client for the remote scan service.
// It is a thin wrapper over net/http: every operation is a single request
// with no retry logic. Retry and polling policy belong to the lifecycle
// controller, not this layer.
package api
