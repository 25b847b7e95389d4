// Package model defines the core data structures shared across SiteSense:
// scan records, module results, the aggregated report, and chat messages.
package model
