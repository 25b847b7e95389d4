// Package lifecycle implements the scan lifecycle controller: the state
// machine that creates scans, polls them to a terminal state, and keeps
// the local cache reconciled with the remote scan service.
//
// Every Create or Load sequence mints a generation token; side effects
// from a superseded sequence (a poll response arriving after the user
// moved to a different scan) are discarded instead of being applied.
package lifecycle
