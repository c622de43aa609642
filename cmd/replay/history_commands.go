package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"replay/internal/config"
	"replay/internal/logging"
	"replay/internal/logs"
	"replay/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if runs == nil {
						runs = []store.Run{}
					}
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderRuns(runs, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	cmd.AddCommand(newHistoryLogCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run and the files it skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				run, err := st.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %q not found", args[0])
				}
				skipped, err := st.SkippedFiles(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if skipped == nil {
						skipped = []store.SkippedFile{}
					}
					return writeJSON(cmd, struct {
						Run     *store.Run          `json:"run"`
						Skipped []store.SkippedFile `json:"skipped"`
					}{run, skipped})
				}
				printRunDetail(cmd, run, skipped)
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				if !cmd.Flags().Changed("keep") {
					keep = cfg.History.KeepRuns
				}
				removed, err := st.PruneRuns(cmd.Context(), keep)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]int64{"removed": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s); kept the newest %d\n", removed, keep)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Runs to keep (defaults to history.keep_runs)")
	return cmd
}

func newHistoryLogCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "log RUN_ID",
		Short: "Print the log written during one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			err := ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				run, err := st.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %q not found", args[0])
				}
				path = logging.RunLogPath(cfg.Paths.LogDir, run.ID)
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			chunk, err := logs.Read(cmd.Context(), path, logs.Options{Lines: lines})
			if err != nil {
				return err
			}
			printLines(out, chunk.Lines)
			for follow {
				chunk, err = logs.Follow(cmd.Context(), path, chunk.Offset, 2*time.Second)
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				printLines(out, chunk.Lines)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Trailing lines to print (0 for the whole log)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are appended")
	return cmd
}

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func renderRuns(runs []store.Run, now time.Time) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			formatWhen(r.StartedAt, now),
			string(r.Status),
			formatCount(r.FilesSeen),
			formatCount(r.FilesSkipped),
			formatCount(r.RecordsRead),
			formatCount(r.DuplicatesRemoved),
			formatCount(r.RecordsWritten),
			formatDuration(r.Duration()),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Status", "Files", "Skipped", "Read", "Dupes", "Written", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func printRunDetail(cmd *cobra.Command, run *store.Run, skipped []store.SkippedFile) {
	out := cmd.OutOrStdout()
	now := time.Now()
	finished := "-"
	if run.FinishedAt != nil {
		finished = formatWhen(*run.FinishedAt, now)
	}
	pairs := [][2]string{
		{"Run", run.ID},
		{"Status", string(run.Status)},
		{"Started", formatWhen(run.StartedAt, now)},
		{"Finished", finished},
		{"Duration", formatDuration(run.Duration())},
		{"Input", run.InputDir},
		{"Output", run.OutputPath},
		{"Files seen", formatCount(run.FilesSeen)},
		{"Files skipped", formatCount(run.FilesSkipped)},
		{"Records read", formatCount(run.RecordsRead)},
		{"Duplicates removed", formatCount(run.DuplicatesRemoved)},
		{"Records written", formatCount(run.RecordsWritten)},
	}
	if run.OutputSHA256 != "" {
		pairs = append(pairs, [2]string{"Output size", formatBytes(run.OutputBytes)}, [2]string{"SHA-256", run.OutputSHA256})
	}
	if run.ErrorKind != "" {
		pairs = append(pairs, [2]string{"Error kind", run.ErrorKind}, [2]string{"Error", run.ErrorMessage})
	}
	fmt.Fprintln(out, renderKeyValues(pairs))

	if len(skipped) > 0 {
		rows := make([][]string, 0, len(skipped))
		for _, s := range skipped {
			rows = append(rows, []string{s.Path, s.Reason})
		}
		fmt.Fprintln(out, "Skipped files:")
		fmt.Fprintln(out, renderTable([]string{"Path", "Reason"}, rows, nil))
	}
}
