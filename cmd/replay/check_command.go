package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"replay/internal/config"
	"replay/internal/preflight"
	"replay/internal/store"
)

type checkReport struct {
	ConfigPath   string             `json:"config_path"`
	ConfigExists bool               `json:"config_exists"`
	Results      []preflight.Result `json:"results"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify paths and the database before a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report := checkReport{ConfigPath: ctx.configPath, ConfigExists: ctx.configExists}
			if err := cfg.RequirePaths(); err != nil {
				report.Results = append(report.Results, preflight.Result{Name: "Pipeline paths", Detail: err.Error()})
			}
			report.Results = append(report.Results, preflight.RunAll(cmd.Context(), cfg)...)
			report.Results = append(report.Results, checkDatabase(cmd.Context(), cfg))

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printCheckReport(cmd, report)
			}
			if failed := preflight.Failed(report.Results); len(failed) > 0 {
				return &preflightError{failed: failed}
			}
			return nil
		},
	}
}

func checkDatabase(ctx context.Context, cfg *config.Config) preflight.Result {
	const name = "Database"
	if failed := preflight.Failed([]preflight.Result{preflight.CheckWritableOrCreatable(name, cfg.Paths.DataDir)}); len(failed) > 0 {
		return failed[0]
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return preflight.Result{Name: name, Detail: err.Error()}
	}
	st, err := store.Open(cfg)
	if err != nil {
		return preflight.Result{Name: name, Detail: err.Error()}
	}
	defer st.Close()
	migrations, err := st.AppliedMigrations(ctx)
	if err != nil {
		return preflight.Result{Name: name, Detail: err.Error()}
	}
	return preflight.Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d migration(s))", st.Path(), len(migrations))}
}

func printCheckReport(cmd *cobra.Command, report checkReport) {
	out := cmd.OutOrStdout()
	source := report.ConfigPath
	if !report.ConfigExists {
		source += " (not found; defaults and environment used)"
	}
	fmt.Fprintf(out, "Config: %s\n", source)

	colorize := isTerminal(out)
	rows := make([][]string, 0, len(report.Results))
	for _, r := range report.Results {
		status := "OK"
		if !r.Passed {
			status = "FAIL"
		}
		if colorize {
			status = colorStatus(status, r.Passed)
		}
		rows = append(rows, []string{r.Name, status, r.Detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
}

func colorStatus(status string, ok bool) string {
	const (
		ansiReset = "\x1b[0m"
		ansiRed   = "\x1b[31m"
		ansiGreen = "\x1b[32m"
	)
	if ok {
		return ansiGreen + status + ansiReset
	}
	return ansiRed + status + ansiReset
}
