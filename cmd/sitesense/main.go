// Package main provides the entry point for the SiteSense CLI.
//
// SiteSense analyzes websites through a remote scan service: it submits a
// URL, polls the scan to completion, mirrors results into a local cache,
// and renders the aggregated report.
//
// Usage:
//
//	sitesense scan <url>
//	sitesense history
//	sitesense show <scan-id>
//
// See --help for all available options.
package main

// main is the entry point for SiteSense.
func main() {
	Execute()
}
