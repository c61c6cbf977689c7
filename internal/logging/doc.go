// Package logging assembles structured slog loggers and formatting helpers used
// across filemanager components.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so request handlers can tag log lines with
// entry IDs, operations, and correlation IDs. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
