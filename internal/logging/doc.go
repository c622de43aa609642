// Package logging assembles structured slog loggers and formatting helpers used
// across replay commands.
//
// It owns the console/JSON handlers, level parsing, and output plumbing, and
// exposes context helpers so pipeline code tags every line with the run ID
// of the invocation that produced it. Per-run log files are pruned by
// CleanupOldLogs according to logging.retention_days.
//
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
