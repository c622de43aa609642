package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"replay/internal/export"
	"replay/internal/fileutil"
	"replay/internal/logging"
)

// Ordering modes.
const (
	OrderingInput     = "input"
	OrderingTimestamp = "timestamp"
)

// Options configures a single Run.
type Options struct {
	InputDir   string
	OutputPath string

	Pattern   string
	Recursive bool

	// Ordering is OrderingInput (default) or OrderingTimestamp.
	Ordering       string
	TimestampField string

	// Workers bounds parallel parsing; values below 1 mean sequential.
	Workers int
	Indent  bool

	RunID  string
	Logger *slog.Logger

	// OnFileParsed is invoked once per discovered file after parsing. It may
	// be called from several goroutines when Workers > 1.
	OnFileParsed func(path string, records int, err error)
}

// SkippedFile names an export file excluded from the clean dataset.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result summarizes a successful run.
type Result struct {
	RunID             string        `json:"run_id"`
	InputDir          string        `json:"input_dir"`
	OutputPath        string        `json:"output_path"`
	FilesSeen         int           `json:"files_seen"`
	FilesSkipped      int           `json:"files_skipped"`
	Skipped           []SkippedFile `json:"skipped,omitempty"`
	RecordsRead       int           `json:"records_read"`
	DuplicatesRemoved int           `json:"duplicates_removed"`
	RecordsWritten    int           `json:"records_written"`
	MissingTimestamps int           `json:"missing_timestamps,omitempty"`
	OutputSHA256      string        `json:"output_sha256"`
	OutputBytes       int64         `json:"output_bytes"`
	Duration          time.Duration `json:"duration"`
}

type fileResult struct {
	path    string
	records []export.Record
	err     error
}

// Run executes discover, parse, merge, and write for one input directory.
// On error the returned Result still carries the counts gathered so far.
func Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	ctx = logging.WithRunID(ctx, opts.RunID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "pipeline"))

	result := &Result{RunID: opts.RunID, InputDir: opts.InputDir, OutputPath: opts.OutputPath}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return result, &WriteFailureError{Path: opts.OutputPath, Err: err}
	}
	lock, err := acquireOutputLock(opts.OutputPath)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return result, err
		}
		return result, &WriteFailureError{Path: opts.OutputPath, Err: err}
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release output lock failed", logging.Error(err))
		}
	}()

	if removed, err := fileutil.RemoveStaleTemps(opts.OutputPath); err != nil {
		logger.Warn("stale temp cleanup failed", logging.Error(err))
	} else if len(removed) > 0 {
		logger.Info("removed stale temp files from an interrupted run", logging.Int("count", len(removed)))
	}

	logger.Info("pipeline started",
		logging.String("input_dir", opts.InputDir),
		logging.String("output_path", opts.OutputPath),
		logging.String("ordering", opts.Ordering),
		logging.Int("workers", opts.Workers),
	)

	files, err := parseAll(ctx, opts)
	if err != nil {
		return result, err
	}

	sequences := make([][]export.Record, 0, len(files))
	for _, file := range files {
		result.FilesSeen++
		if file.err != nil {
			result.FilesSkipped++
			result.Skipped = append(result.Skipped, SkippedFile{Path: file.path, Reason: skipReason(file.err)})
			logging.WarnWithContext(logger, "export file skipped", "export_file_skipped",
				logging.String(logging.FieldPath, file.path),
				logging.Error(file.err),
				logging.String(logging.FieldErrorHint, "check that the file is an unmodified JSON export"),
				logging.String(logging.FieldImpact, "records from this file are excluded"),
			)
			continue
		}
		logger.Debug("export file parsed", logging.String(logging.FieldPath, file.path), logging.Int("records", len(file.records)))
		result.RecordsRead += len(file.records)
		sequences = append(sequences, file.records)
	}

	if result.RecordsRead == 0 {
		return result, &NoValidInputError{Dir: opts.InputDir, FilesSeen: result.FilesSeen, FilesSkipped: result.FilesSkipped}
	}

	merged, duplicates := Merge(sequences)
	result.DuplicatesRemoved = duplicates
	if opts.Ordering == OrderingTimestamp {
		result.MissingTimestamps = SortByTimestamp(merged, opts.TimestampField)
		if result.MissingTimestamps > 0 {
			logging.WarnWithContext(logger, "records without a timestamp placed last", "missing_timestamps",
				logging.Int("count", result.MissingTimestamps),
				logging.String("field", opts.TimestampField),
				logging.String(logging.FieldErrorHint, "set fields.timestamp to the export's timestamp key"),
				logging.String(logging.FieldImpact, "these records keep input order at the end of the dataset"),
			)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if err := Write(merged, opts.OutputPath, opts.Indent); err != nil {
		return result, err
	}
	result.RecordsWritten = len(merged)

	sum, size, err := fileutil.SHA256File(opts.OutputPath)
	if err != nil {
		logger.Warn("hash clean dataset failed", logging.Error(err))
	}
	result.OutputSHA256 = sum
	result.OutputBytes = size
	result.Duration = time.Since(started)

	logger.Info("pipeline finished",
		logging.Int("files_seen", result.FilesSeen),
		logging.Int("files_skipped", result.FilesSkipped),
		logging.Int("records_read", result.RecordsRead),
		logging.Int("duplicates_removed", result.DuplicatesRemoved),
		logging.Int("records_written", result.RecordsWritten),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

// parseAll ranges over discovery and parses each file, keeping results in
// discovery order regardless of which worker finishes first.
func parseAll(ctx context.Context, opts Options) ([]*fileResult, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(opts.Workers)

	var files []*fileResult
	var discoverErr error
	seq := export.Discover(opts.InputDir, export.DiscoverOptions{
		Pattern:   opts.Pattern,
		Recursive: opts.Recursive,
		Exclude:   []string{opts.OutputPath},
	})
	for path, err := range seq {
		if err != nil {
			discoverErr = err
			break
		}
		if err := groupCtx.Err(); err != nil {
			break
		}
		slot := &fileResult{path: path}
		files = append(files, slot)
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			slot.records, slot.err = export.Parse(slot.path)
			if opts.OnFileParsed != nil {
				opts.OnFileParsed(slot.path, len(slot.records), slot.err)
			}
			return nil
		})
	}
	waitErr := group.Wait()
	if discoverErr != nil {
		return nil, fmt.Errorf("discover export files: %w", discoverErr)
	}
	if waitErr != nil {
		return nil, waitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

func skipReason(err error) string {
	var malformed *export.MalformedInputError
	if errors.As(err, &malformed) {
		if malformed.Err != nil {
			return malformed.Reason + ": " + malformed.Err.Error()
		}
		return malformed.Reason
	}
	return err.Error()
}

func (o *Options) normalize() error {
	o.InputDir = strings.TrimSpace(o.InputDir)
	o.OutputPath = strings.TrimSpace(o.OutputPath)
	if o.InputDir == "" {
		return errors.New("pipeline: input directory is required")
	}
	if o.OutputPath == "" {
		return errors.New("pipeline: output path is required")
	}
	var err error
	if o.InputDir, err = filepath.Abs(o.InputDir); err != nil {
		return fmt.Errorf("pipeline: resolve input dir: %w", err)
	}
	if o.OutputPath, err = filepath.Abs(o.OutputPath); err != nil {
		return fmt.Errorf("pipeline: resolve output path: %w", err)
	}
	switch o.Ordering {
	case "":
		o.Ordering = OrderingInput
	case OrderingInput, OrderingTimestamp:
	default:
		return fmt.Errorf("pipeline: unknown ordering %q", o.Ordering)
	}
	if o.Ordering == OrderingTimestamp && strings.TrimSpace(o.TimestampField) == "" {
		return errors.New("pipeline: timestamp ordering requires a timestamp field")
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	return nil
}
