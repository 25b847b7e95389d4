// Package log provides structured logging helpers for SiteSense.
// Its redacting handler guarantees the cached chat credential and other
// secret-bearing attributes never reach the log stream.
package log
