package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, started_at, finished_at, status, input_dir, output_path, files_seen, files_skipped, records_read, duplicates_removed, records_written, output_sha256, output_bytes, error_kind, error_message"

// BeginRun inserts a run in the running state. StartedAt defaults to now.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("begin run: id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, started_at, status, input_dir, output_path) VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		RunRunning,
		run.InputDir,
		run.OutputPath,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counts of a run.
func (s *Store) FinishRun(ctx context.Context, id string, outcome RunOutcome) error {
	if outcome.Status == "" {
		outcome.Status = RunSucceeded
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, files_seen = ?, files_skipped = ?, records_read = ?,
            duplicates_removed = ?, records_written = ?, output_sha256 = ?, output_bytes = ?,
            error_kind = ?, error_message = ?
        WHERE id = ?`,
		formatTime(time.Now()),
		outcome.Status,
		outcome.FilesSeen,
		outcome.FilesSkipped,
		outcome.RecordsRead,
		outcome.DuplicatesRemoved,
		outcome.RecordsWritten,
		nullableString(outcome.OutputSHA256),
		outcome.OutputBytes,
		nullableString(outcome.ErrorKind),
		nullableString(outcome.ErrorMessage),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// RecordSkipped stores the files a run excluded.
func (s *Store) RecordSkipped(ctx context.Context, runID string, files []SkippedFile) error {
	if len(files) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO skipped_files (run_id, path, reason) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, file := range files {
			if _, err := stmt.ExecContext(ctx, runID, file.Path, file.Reason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record skipped files: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by id, or by a unique id prefix. It returns nil when
// nothing matches.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return nil, fmt.Errorf("get run by prefix: %w", err)
	}
	defer rows.Close()
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// SkippedFiles lists the files skipped by a run in recorded order.
func (s *Store) SkippedFiles(ctx context.Context, runID string) ([]SkippedFile, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT run_id, path, reason FROM skipped_files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list skipped files: %w", err)
	}
	defer rows.Close()
	var files []SkippedFile
	for rows.Next() {
		var f SkippedFile
		if err := rows.Scan(&f.RunID, &f.Path, &f.Reason); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// PruneRuns deletes all but the newest keep runs and returns how many were
// removed. Skipped-file rows cascade.
func (s *Store) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune runs: keep must be >= 0, got %d", keep)
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM runs WHERE id NOT IN (
            SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(row scanner) (*Run, error) {
	var (
		run          Run
		startedRaw   string
		finishedRaw  sql.NullString
		status       string
		sha          sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&status,
		&run.InputDir,
		&run.OutputPath,
		&run.FilesSeen,
		&run.FilesSkipped,
		&run.RecordsRead,
		&run.DuplicatesRemoved,
		&run.RecordsWritten,
		&sha,
		&run.OutputBytes,
		&errorKind,
		&errorMessage,
	); err != nil {
		return nil, err
	}
	if t, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = t
	}
	run.FinishedAt = parseNullTime(finishedRaw)
	run.Status = RunStatus(status)
	run.OutputSHA256 = sha.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	return &run, nil
}
