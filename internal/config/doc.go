// Package config provides configuration structures and utilities for
// SiteSense. It defines the remote API endpoint, polling policy, cache
// location, and report output preferences.
package config
