package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RunLogPath returns the per-run log file for runID inside logDir.
func RunLogPath(logDir, runID string) string {
	return filepath.Join(RunLogDir(logDir), runID+".log")
}

// RunLogDir returns the directory that holds per-run log files.
func RunLogDir(logDir string) string {
	return filepath.Join(logDir, "runs")
}

// CleanupOldLogs removes files in dir matching pattern whose modification
// time is older than retentionDays before now. The file named by keep is
// never removed. A retentionDays value of 0 disables pruning. It returns the
// number of files removed.
func CleanupOldLogs(logger *slog.Logger, dir, pattern, keep string, retentionDays int, now time.Time) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	keepAbs := ""
	if keep != "" {
		keepAbs, _ = filepath.Abs(keep)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pattern != "" {
			if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
				continue
			}
		}
		fullPath := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(fullPath); err == nil {
			fullPath = abs
		}
		if fullPath == keepAbs {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String(FieldPath, fullPath),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned",
				String(FieldPath, fullPath),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
	return removed
}
