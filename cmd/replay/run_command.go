package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"replay/internal/catalog"
	"replay/internal/config"
	"replay/internal/export"
	"replay/internal/logging"
	"replay/internal/pipeline"
	"replay/internal/preflight"
	"replay/internal/store"
)

type runFlags struct {
	input      string
	output     string
	ordering   string
	workers    int
	indent     bool
	load       bool
	noProgress bool
}

type runReport struct {
	Run     *pipeline.Result    `json:"run"`
	Catalog *catalog.LoadResult `json:"catalog,omitempty"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the clean dataset from the export folder",
		Long: `Reads every export file in the input directory, skips malformed files,
removes exact duplicate records, and atomically writes one JSON array to the
output path. Running again over the same folder produces identical output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg, flags); err != nil {
				return err
			}
			return executeRun(cmd, ctx, cfg, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Export folder (overrides paths.input_dir)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Clean dataset file (overrides paths.output_path)")
	cmd.Flags().StringVar(&flags.ordering, "ordering", "", "Record ordering: input or timestamp")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Files parsed in parallel")
	cmd.Flags().BoolVar(&flags.indent, "indent", false, "Indent the clean dataset")
	cmd.Flags().BoolVar(&flags.load, "load", false, "Load the clean dataset into the catalog afterwards")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) error {
	if flags.input != "" {
		if err := cfg.SetInputDir(flags.input); err != nil {
			return err
		}
	}
	if flags.output != "" {
		if err := cfg.SetOutputPath(flags.output); err != nil {
			return err
		}
	}
	if flags.ordering != "" {
		if err := config.ValidateOrdering(flags.ordering); err != nil {
			return err
		}
		cfg.Pipeline.Ordering = flags.ordering
	}
	if cmd.Flags().Changed("workers") {
		cfg.Pipeline.Workers = flags.workers
	}
	if cmd.Flags().Changed("indent") {
		cfg.Output.Indent = flags.indent
	}
	if err := cfg.RequirePaths(); err != nil {
		return err
	}
	return cfg.Validate()
}

func executeRun(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, flags runFlags) error {
	if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
		return &preflightError{failed: failed}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := uuid.NewString()
	runLog := logging.RunLogPath(cfg.Paths.LogDir, runID)
	logger, err := ctx.newLogger(cmd, runLog)
	if err != nil {
		return err
	}
	defer closeLogger(logger, cmd.ErrOrStderr())
	logging.CleanupOldLogs(logger.Logger, logging.RunLogDir(cfg.Paths.LogDir), "*.log", runLog, cfg.Logging.RetentionDays, time.Now())

	return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
		runCtx := logging.WithRunID(cmd.Context(), runID)
		// History writes must land even when the run itself was interrupted.
		recordCtx := context.WithoutCancel(runCtx)

		if err := st.BeginRun(recordCtx, store.Run{ID: runID, InputDir: cfg.Paths.InputDir, OutputPath: cfg.Paths.OutputPath}); err != nil {
			return err
		}

		discover := export.DiscoverOptions{
			Pattern:   cfg.Discovery.Pattern,
			Recursive: cfg.Discovery.Recursive,
			Exclude:   []string{cfg.Paths.OutputPath},
		}
		total := countExports(logger.Logger, cfg.Paths.InputDir, discover)
		progress := newParseProgress(cmd.ErrOrStderr(), total, !flags.noProgress && !ctx.jsonOutput())

		result, runErr := pipeline.Run(runCtx, pipeline.Options{
			InputDir:       cfg.Paths.InputDir,
			OutputPath:     cfg.Paths.OutputPath,
			Pattern:        cfg.Discovery.Pattern,
			Recursive:      cfg.Discovery.Recursive,
			Ordering:       cfg.Pipeline.Ordering,
			TimestampField: cfg.Fields.Timestamp,
			Workers:        cfg.Pipeline.Workers,
			Indent:         cfg.Output.Indent,
			RunID:          runID,
			Logger:         logger.Logger,
			OnFileParsed:   progress.fileParsed,
		})
		progress.finish()

		if err := recordRun(recordCtx, st, runID, result, runErr); err != nil {
			logging.WarnWithContext(logger.Logger, "run history not recorded", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run is missing from `replay history`"),
			)
		}
		if keep := cfg.History.KeepRuns; keep > 0 {
			if _, err := st.PruneRuns(recordCtx, keep); err != nil {
				logger.Warn("prune run history failed", logging.Error(err))
			}
		}
		if runErr != nil {
			return runErr
		}

		report := runReport{Run: result}
		if flags.load || cfg.Catalog.AutoLoad {
			loaded, err := catalog.Load(runCtx, st, cfg.Paths.OutputPath, catalog.OptionsFromConfig(cfg), cfg.Catalog.BatchSize, logger.Logger)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			report.Catalog = loaded
		}

		if ctx.jsonOutput() {
			return writeJSON(cmd, report)
		}
		printRunReport(cmd, report)
		return nil
	})
}

func recordRun(ctx context.Context, st *store.Store, runID string, result *pipeline.Result, runErr error) error {
	outcome := store.RunOutcome{Status: store.RunSucceeded}
	if result != nil {
		outcome.FilesSeen = result.FilesSeen
		outcome.FilesSkipped = result.FilesSkipped
		outcome.RecordsRead = result.RecordsRead
		outcome.DuplicatesRemoved = result.DuplicatesRemoved
		outcome.RecordsWritten = result.RecordsWritten
		outcome.OutputSHA256 = result.OutputSHA256
		outcome.OutputBytes = result.OutputBytes

		skipped := make([]store.SkippedFile, 0, len(result.Skipped))
		for _, s := range result.Skipped {
			skipped = append(skipped, store.SkippedFile{RunID: runID, Path: s.Path, Reason: s.Reason})
		}
		if err := st.RecordSkipped(ctx, runID, skipped); err != nil {
			return err
		}
	}
	if runErr != nil {
		outcome.Status = store.RunFailed
		outcome.ErrorKind = pipeline.ErrorKind(runErr)
		outcome.ErrorMessage = runErr.Error()
	}
	return st.FinishRun(ctx, runID, outcome)
}

func printRunReport(cmd *cobra.Command, report runReport) {
	out := cmd.OutOrStdout()
	res := report.Run
	fmt.Fprintf(out, "Run %s succeeded\n", shortID(res.RunID))
	fmt.Fprintln(out, renderKeyValues([][2]string{
		{"Input", res.InputDir},
		{"Output", res.OutputPath},
		{"Files seen", formatCount(res.FilesSeen)},
		{"Files skipped", formatCount(res.FilesSkipped)},
		{"Records read", formatCount(res.RecordsRead)},
		{"Duplicates removed", formatCount(res.DuplicatesRemoved)},
		{"Records written", formatCount(res.RecordsWritten)},
		{"Output size", formatBytes(res.OutputBytes)},
		{"SHA-256", res.OutputSHA256},
		{"Duration", formatDuration(res.Duration)},
	}))
	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, "Skipped files:")
		fmt.Fprintln(out, renderSkipped(res.Skipped))
	}
	if report.Catalog != nil {
		fmt.Fprintf(out, "Catalog loaded: %s plays (%s podcast episodes left out)\n",
			formatCount(report.Catalog.Inserted), formatCount(report.Catalog.Stats.Episodes))
	}
}

func renderSkipped(files []pipeline.SkippedFile) string {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{f.Path, f.Reason})
	}
	return renderTable([]string{"Path", "Reason"}, rows, nil)
}

// countExports sizes the progress bar. A failed count only disables the bar;
// the pipeline reports the same discovery error itself.
func countExports(logger *slog.Logger, dir string, opts export.DiscoverOptions) int {
	total, err := export.CountMatches(dir, opts)
	if err != nil {
		logger.Debug("count export files failed", logging.Error(err))
		return 0
	}
	return total
}
