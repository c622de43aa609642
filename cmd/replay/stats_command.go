package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"replay/internal/config"
	"replay/internal/store"
)

type statsReport struct {
	Summary    store.CatalogSummary `json:"summary"`
	RankedBy   string               `json:"ranked_by"`
	From       string               `json:"from,omitempty"`
	To         string               `json:"to,omitempty"`
	TopArtists []store.ArtistCount  `json:"top_artists"`
	TopTracks  []store.TrackCount   `json:"top_tracks"`
	Years      []store.YearCount    `json:"years"`
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var top int
	var query store.TopQuery

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the play catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if top <= 0 {
				return fmt.Errorf("--top must be positive, got %d", top)
			}
			query.Limit = top
			if err := query.Validate(); err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				c := cmd.Context()
				report := statsReport{RankedBy: query.By, From: query.From, To: query.To}
				var err error
				if report.Summary, err = st.CatalogSummary(c); err != nil {
					return err
				}
				if report.TopArtists, err = st.TopArtists(c, query); err != nil {
					return err
				}
				if report.TopTracks, err = st.TopTracks(c, query); err != nil {
					return err
				}
				if report.Years, err = st.Years(c, query); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				printStats(cmd, report)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "Number of top artists and tracks to list")
	cmd.Flags().StringVar(&query.By, "by", store.RankByPlays, "Rank top lists by plays or minutes")
	cmd.Flags().StringVar(&query.From, "from", "", "Only count plays on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&query.To, "to", "", "Only count plays on or before this date (YYYY-MM-DD)")
	return cmd
}

func printStats(cmd *cobra.Command, report statsReport) {
	out := cmd.OutOrStdout()
	s := report.Summary
	if s.Total == 0 {
		fmt.Fprintln(out, "Catalog is empty; run `replay load` or `replay run --load` first")
		return
	}

	pairs := [][2]string{
		{"Total plays", formatCount(s.Total)},
		{"With track name", formatCount(s.WithTrackName)},
		{"With minutes played", formatCount(s.WithMinutes)},
		{"With date", formatCount(s.WithDate)},
		{"Valid listens", formatCount(s.ValidListens)},
		{"Distinct tracks", formatCount(s.DistinctTracks)},
		{"Listening time", formatMinutes(s.TotalMinutes)},
	}
	if s.FirstDate != "" {
		pairs = append(pairs, [2]string{"Date range", s.FirstDate + " to " + s.LastDate})
	}
	if s.LastLoad != nil {
		pairs = append(pairs, [2]string{"Loaded from", s.LastLoad.SourcePath})
		pairs = append(pairs, [2]string{"Loaded", formatWhen(s.LastLoad.LoadedAt, time.Now())})
	}
	fmt.Fprintln(out, renderKeyValues(pairs))

	if len(s.Sample) > 0 {
		rows := make([][]string, 0, len(s.Sample))
		for _, p := range s.Sample {
			rows = append(rows, []string{p.PlayedAt, orUnknown(p.TrackName, "Unknown Track"), orUnknown(p.ArtistName, "Unknown Artist"), strconv.FormatFloat(p.MinutesPlayed, 'f', 2, 64)})
		}
		fmt.Fprintln(out, "Sample:")
		fmt.Fprintln(out, renderTable([]string{"Played at", "Track", "Artist", "Minutes"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
	}

	if scope := rankingScope(report); scope != "" {
		fmt.Fprintln(out, scope)
	}

	if len(report.TopArtists) > 0 {
		rows := make([][]string, 0, len(report.TopArtists))
		for i, a := range report.TopArtists {
			rows = append(rows, []string{strconv.Itoa(i + 1), a.Artist, formatCount(a.Plays), numberPrinter.Sprintf("%.1f", a.Minutes)})
		}
		fmt.Fprintln(out, "Top artists:")
		fmt.Fprintln(out, renderTable([]string{"#", "Artist", "Plays", "Minutes"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignRight}))
	}

	if len(report.TopTracks) > 0 {
		rows := make([][]string, 0, len(report.TopTracks))
		for i, t := range report.TopTracks {
			rows = append(rows, []string{strconv.Itoa(i + 1), t.Track, orUnknown(t.Artist, "Unknown Artist"), formatCount(t.Plays), numberPrinter.Sprintf("%.1f", t.Minutes)})
		}
		fmt.Fprintln(out, "Top tracks:")
		fmt.Fprintln(out, renderTable([]string{"#", "Track", "Artist", "Plays", "Minutes"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight}))
	}

	if len(report.Years) > 0 {
		rows := make([][]string, 0, len(report.Years))
		for _, y := range report.Years {
			rows = append(rows, []string{strconv.Itoa(y.Year), formatCount(y.Plays), formatMinutes(y.Minutes), formatCount(y.ValidListens), formatCount(y.Artists)})
		}
		fmt.Fprintln(out, "Per year:")
		fmt.Fprintln(out, renderTable([]string{"Year", "Plays", "Listening time", "Valid", "Artists"}, rows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight}))
	}
}

// rankingScope describes non-default ranking or date bounds, if any.
func rankingScope(report statsReport) string {
	var parts []string
	if report.RankedBy == store.RankByMinutes {
		parts = append(parts, "ranked by minutes")
	}
	switch {
	case report.From != "" && report.To != "":
		parts = append(parts, "plays from "+report.From+" to "+report.To)
	case report.From != "":
		parts = append(parts, "plays since "+report.From)
	case report.To != "":
		parts = append(parts, "plays through "+report.To)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Top lists " + strings.Join(parts, ", ") + ":"
}

func orUnknown(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
