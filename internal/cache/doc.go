// Package cache provides the local SQLite mirror of remote scan records.
// It holds two collections: scans (keyed by scan id, ordered newest-first
// by created_at) and keys (named opaque credentials for the chat backend).
// Cache unavailability is never fatal to callers; the remote service
// remains the source of truth.
package cache
