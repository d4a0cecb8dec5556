// Package logging assembles structured slog loggers and formatting helpers used
// across acmsync.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so protocol code can tag log lines
// with the ACM name and request identifiers. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
