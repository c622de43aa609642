// Package logs reads back the per-run log files written by replay run.
//
// Reads use bounded memory: the last N lines are kept in a ring while the
// file is scanned once. Follow mode polls for lines appended by a run that
// is still in progress until the caller's wait or context expires.
package logs
