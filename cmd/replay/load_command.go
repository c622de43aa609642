package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"replay/internal/catalog"
	"replay/internal/config"
	"replay/internal/store"
)

func newLoadCommand(ctx *commandContext) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the clean dataset into the play catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := cfg.Paths.OutputPath
			if from != "" {
				if source, err = config.ExpandPath(from); err != nil {
					return fmt.Errorf("resolve --from: %w", err)
				}
			}
			if source == "" {
				return fmt.Errorf("%w: pass --from or set paths.output_path", config.ErrPathsMissing)
			}

			logger, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}
			defer closeLogger(logger, cmd.ErrOrStderr())

			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				result, err := catalog.Load(cmd.Context(), st, source, catalog.OptionsFromConfig(cfg), cfg.Catalog.BatchSize, logger.Logger)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Loaded %s plays from %s\n", formatCount(result.Inserted), result.SourcePath)
				fmt.Fprintln(out, renderKeyValues([][2]string{
					{"Records", formatCount(result.Stats.Records)},
					{"Plays", formatCount(result.Stats.Plays)},
					{"Podcast episodes", formatCount(result.Stats.Episodes)},
					{"Missing timestamp", formatCount(result.Stats.MissingTimestamp)},
					{"Undecodable", formatCount(result.Stats.Undecodable)},
					{"Duration", formatDuration(result.Duration)},
				}))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Clean dataset to load (defaults to paths.output_path)")
	return cmd
}
