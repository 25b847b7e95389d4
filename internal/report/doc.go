// Package report renders scan records for human and machine consumption.
//
// The package provides three writers behind a common interface: a plain
// text writer for terminal display, a markdown writer for documentation
// and sharing, and a JSON writer for tool integration. All of them render
// from a model.ScanRecord; the aggregated report is decoded on demand and
// a failed scan renders its failure message instead of scores.
package report
