package store_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"replay/internal/store"
	"replay/internal/testsupport"
)

func int64Ptr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestOpenAppliesSchemaAndMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if st.Path() != cfg.DatabasePath() {
		t.Fatalf("expected db at %s, got %s", cfg.DatabasePath(), st.Path())
	}
	versions, err := st.AppliedMigrations(context.Background())
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) != 2 || versions[0] != "001_query_indexes" || versions[1] != "002_year_index" {
		t.Fatalf("unexpected migrations %v", versions)
	}
	if ok, err := st.HasIndexForTest(context.Background(), "idx_plays_year"); err != nil || !ok {
		t.Fatalf("expected idx_plays_year, ok=%v err=%v", ok, err)
	}

	// Reopening an initialized database must not fail or reapply anything.
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	again, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	reapplied, err := again.AppliedMigrations(context.Background())
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(reapplied) != len(versions) {
		t.Fatalf("expected %d migrations, got %v", len(versions), reapplied)
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := st.BeginRun(ctx, store.Run{ID: "run-1", StartedAt: started, InputDir: "/in", OutputPath: "/out/clean.json"}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	run, err := st.GetRun(ctx, "run-1")
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %v", run, err)
	}
	if run.Status != store.RunRunning || !run.StartedAt.Equal(started) || run.FinishedAt != nil {
		t.Fatalf("unexpected running row %+v", run)
	}

	skipped := []store.SkippedFile{{Path: "/in/b.json", Reason: "invalid JSON"}, {Path: "/in/c.json", Reason: "not an array"}}
	if err := st.RecordSkipped(ctx, "run-1", skipped); err != nil {
		t.Fatalf("RecordSkipped: %v", err)
	}
	if err := st.FinishRun(ctx, "run-1", store.RunOutcome{
		Status:            store.RunSucceeded,
		FilesSeen:         3,
		FilesSkipped:      2,
		RecordsRead:       10,
		DuplicatesRemoved: 4,
		RecordsWritten:    6,
		OutputSHA256:      "abc",
		OutputBytes:       120,
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err = st.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.RunSucceeded || run.FinishedAt == nil {
		t.Fatalf("expected finished run, got %+v", run)
	}
	if run.FilesSeen != 3 || run.FilesSkipped != 2 || run.RecordsRead != 10 || run.DuplicatesRemoved != 4 || run.RecordsWritten != 6 {
		t.Fatalf("unexpected counts %+v", run)
	}
	if run.OutputSHA256 != "abc" || run.OutputBytes != 120 || run.ErrorKind != "" {
		t.Fatalf("unexpected output fields %+v", run)
	}

	files, err := st.SkippedFiles(ctx, "run-1")
	if err != nil {
		t.Fatalf("SkippedFiles: %v", err)
	}
	if len(files) != 2 || files[0].Path != "/in/b.json" || files[1].Reason != "not an array" || files[0].RunID != "run-1" {
		t.Fatalf("unexpected skipped files %+v", files)
	}
}

func TestFinishRunFailure(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := st.BeginRun(ctx, store.Run{ID: "r", InputDir: "/in", OutputPath: "/out"}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := st.FinishRun(ctx, "r", store.RunOutcome{Status: store.RunFailed, ErrorKind: "no_valid_input", ErrorMessage: "nothing"}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, _ := st.GetRun(ctx, "r")
	if run.Status != store.RunFailed || run.ErrorKind != "no_valid_input" || run.ErrorMessage != "nothing" {
		t.Fatalf("unexpected failed run %+v", run)
	}

	if err := st.FinishRun(ctx, "missing", store.RunOutcome{}); err == nil {
		t.Fatal("expected error finishing unknown run")
	}
	if err := st.BeginRun(ctx, store.Run{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestGetRunByPrefix(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, id := range []string{"abc123", "abd456"} {
		if err := st.BeginRun(ctx, store.Run{ID: id, InputDir: "/in", OutputPath: "/out"}); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
	}

	run, err := st.GetRun(ctx, "abc")
	if err != nil || run == nil || run.ID != "abc123" {
		t.Fatalf("expected prefix match, got %v %v", run, err)
	}
	if _, err := st.GetRun(ctx, "ab"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
	run, err = st.GetRun(ctx, "zzz")
	if err != nil || run != nil {
		t.Fatalf("expected nil for unknown id, got %v %v", run, err)
	}
}

func TestListAndPruneRuns(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("run-%d", i)
		if err := st.BeginRun(ctx, store.Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour), InputDir: "/in", OutputPath: "/out"}); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
		if err := st.RecordSkipped(ctx, id, []store.SkippedFile{{Path: "/in/x.json", Reason: "bad"}}); err != nil {
			t.Fatalf("RecordSkipped: %v", err)
		}
	}

	runs, err := st.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "run-4" || runs[2].ID != "run-2" {
		t.Fatalf("unexpected run order %+v", runs)
	}

	removed, err := st.PruneRuns(ctx, 2)
	if err != nil {
		t.Fatalf("PruneRuns: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	all, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 2 || all[0].ID != "run-4" || all[1].ID != "run-3" {
		t.Fatalf("unexpected remaining runs %+v", all)
	}
	files, err := st.SkippedFiles(ctx, "run-0")
	if err != nil {
		t.Fatalf("SkippedFiles: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected skipped files to cascade, got %+v", files)
	}
	if _, err := st.PruneRuns(ctx, -1); err == nil {
		t.Fatal("expected error for negative keep")
	}
}

func samplePlays(n int) []store.Play {
	plays := make([]store.Play, 0, n)
	for i := 0; i < n; i++ {
		at := time.Date(2023, 1, 1+i%28, i%24, 0, 0, 0, time.UTC)
		ms := int64(10000 + i*1000)
		artist := fmt.Sprintf("Artist %d", i%3)
		plays = append(plays, store.Play{
			MsPlayed:      int64Ptr(ms),
			Country:       "SE",
			TrackName:     fmt.Sprintf("Track %d", i%5),
			ArtistName:    artist,
			Shuffle:       boolPtr(i%2 == 0),
			PlayedAt:      timePtr(at),
			Date:          at.Format("2006-01-02"),
			Year:          at.Year(),
			Month:         int(at.Month()),
			DayOfWeek:     at.Weekday().String(),
			Hour:          at.Hour(),
			MinutesPlayed: floatPtr(float64(ms) / 60000),
			IsValidListen: ms >= 30000,
			TrackID:       fmt.Sprintf("id%d", i%5),
			RawJSON:       fmt.Sprintf(`{"i":%d}`, i),
		})
	}
	return plays
}

func TestReplacePlaysBatches(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	n, err := st.ReplacePlays(ctx, samplePlays(25), 7)
	if err != nil {
		t.Fatalf("ReplacePlays: %v", err)
	}
	if n != 25 {
		t.Fatalf("expected 25 inserted, got %d", n)
	}
	count, err := st.CountPlays(ctx)
	if err != nil || count != 25 {
		t.Fatalf("CountPlays: %d %v", count, err)
	}

	// A second load replaces rather than appends.
	n, err = st.ReplacePlays(ctx, samplePlays(4), 0)
	if err != nil || n != 4 {
		t.Fatalf("ReplacePlays: %d %v", n, err)
	}
	count, _ = st.CountPlays(ctx)
	if count != 4 {
		t.Fatalf("expected 4 plays after replace, got %d", count)
	}

	n, err = st.ReplacePlays(ctx, nil, 10)
	if err != nil || n != 0 {
		t.Fatalf("empty ReplacePlays: %d %v", n, err)
	}
}

func TestReplacePlaysCanceledKeepsPreviousCatalog(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := st.ReplacePlays(context.Background(), samplePlays(3), 10); err != nil {
		t.Fatalf("ReplacePlays: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := st.ReplacePlays(ctx, samplePlays(10), 2); err == nil {
		t.Fatal("expected error for canceled context")
	}
	count, err := st.CountPlays(context.Background())
	if err != nil || count != 3 {
		t.Fatalf("expected previous catalog of 3, got %d %v", count, err)
	}
}

func TestCatalogSummaryAndTops(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	plays := samplePlays(30)
	plays = append(plays, store.Play{RawJSON: `{"podcast":true}`})
	if _, err := st.ReplacePlays(ctx, plays, 8); err != nil {
		t.Fatalf("ReplacePlays: %v", err)
	}
	if err := st.RecordCatalogLoad(ctx, store.CatalogLoad{SourcePath: "/out/clean.json", SourceSHA256: "abc", Plays: len(plays)}); err != nil {
		t.Fatalf("RecordCatalogLoad: %v", err)
	}

	summary, err := st.CatalogSummary(ctx)
	if err != nil {
		t.Fatalf("CatalogSummary: %v", err)
	}
	if summary.Total != 31 || summary.WithTrackName != 30 || summary.WithMinutes != 30 || summary.WithDate != 30 {
		t.Fatalf("unexpected completeness %+v", summary)
	}
	if summary.FirstDate != "2023-01-01" || summary.LastDate != "2023-01-28" {
		t.Fatalf("unexpected date range %s..%s", summary.FirstDate, summary.LastDate)
	}
	// ms = 10000..39000; valid when >= 30000 -> i >= 20.
	if summary.ValidListens != 10 {
		t.Fatalf("expected 10 valid listens, got %d", summary.ValidListens)
	}
	if summary.DistinctTracks != 5 {
		t.Fatalf("expected 5 distinct tracks, got %d", summary.DistinctTracks)
	}
	if len(summary.Sample) != 5 || summary.Sample[0].TrackName != "Track 0" {
		t.Fatalf("unexpected sample %+v", summary.Sample)
	}
	if summary.LastLoad == nil || summary.LastLoad.SourcePath != "/out/clean.json" || summary.LastLoad.Plays != 31 {
		t.Fatalf("unexpected last load %+v", summary.LastLoad)
	}

	artists, err := st.TopArtists(ctx, store.TopQuery{Limit: 2})
	if err != nil {
		t.Fatalf("TopArtists: %v", err)
	}
	// Every artist has 10 plays; minutes break the tie.
	if len(artists) != 2 || artists[0].Artist != "Artist 2" || artists[0].Plays != 10 || artists[1].Artist != "Artist 1" {
		t.Fatalf("unexpected artists %+v", artists)
	}

	// 15 (track, artist) pairs of 2 plays each; a limit of 10 keeps 10 of them.
	tracks, err := st.TopTracks(ctx, store.TopQuery{Limit: 10})
	if err != nil {
		t.Fatalf("TopTracks: %v", err)
	}
	total := 0
	for _, tr := range tracks {
		total += tr.Plays
	}
	if len(tracks) != 10 || total != 20 {
		t.Fatalf("expected 10 tracks totalling 20 plays, got %d/%d (%+v)", len(tracks), total, tracks)
	}
	all, err := st.TopTracks(ctx, store.TopQuery{Limit: 50})
	if err != nil {
		t.Fatalf("TopTracks: %v", err)
	}
	total = 0
	for _, tr := range all {
		total += tr.Plays
	}
	if len(all) != 15 || total != 30 {
		t.Fatalf("expected 15 tracks totalling 30 plays, got %d/%d", len(all), total)
	}
	// Track 4 by Artist 2 is i=14 and i=29, the longest pair.
	if all[0].Track != "Track 4" || all[0].Artist != "Artist 2" {
		t.Fatalf("unexpected leader %+v", all[0])
	}
}

func TestTopRankingAndDateRange(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	day := func(d string, artist, track string, ms int64) store.Play {
		at, _ := time.Parse("2006-01-02", d)
		minutes := float64(ms) / 60000
		return store.Play{
			MsPlayed: int64Ptr(ms), TrackName: track, ArtistName: artist,
			PlayedAt: timePtr(at), Date: d, Year: at.Year(), Month: int(at.Month()),
			DayOfWeek: at.Weekday().String(), MinutesPlayed: floatPtr(minutes),
			IsValidListen: ms >= 30000, RawJSON: "{}",
		}
	}
	plays := []store.Play{
		day("2021-03-01", "Short", "Jingle", 60000),
		day("2021-03-02", "Short", "Jingle", 60000),
		day("2021-03-03", "Short", "Jingle", 60000),
		day("2022-07-01", "Long", "Suite", 1200000),
		day("2022-07-02", "Long", "Suite", 1200000),
		day("2023-01-05", "Short", "Jingle", 60000),
		{RawJSON: "{}", TrackName: "Undated", ArtistName: "Nobody"},
	}
	if _, err := st.ReplacePlays(ctx, plays, 0); err != nil {
		t.Fatalf("ReplacePlays: %v", err)
	}

	byPlays, err := st.TopArtists(ctx, store.TopQuery{Limit: 5, By: store.RankByPlays})
	if err != nil {
		t.Fatalf("TopArtists plays: %v", err)
	}
	if len(byPlays) != 3 || byPlays[0].Artist != "Short" || byPlays[0].Plays != 4 {
		t.Fatalf("unexpected plays ranking %+v", byPlays)
	}

	byMinutes, err := st.TopArtists(ctx, store.TopQuery{Limit: 5, By: store.RankByMinutes})
	if err != nil {
		t.Fatalf("TopArtists minutes: %v", err)
	}
	if byMinutes[0].Artist != "Long" || byMinutes[0].Minutes != 40 {
		t.Fatalf("unexpected minutes ranking %+v", byMinutes)
	}

	tracks, err := st.TopTracks(ctx, store.TopQuery{Limit: 5, By: store.RankByMinutes, From: "2021-01-01", To: "2021-12-31"})
	if err != nil {
		t.Fatalf("TopTracks range: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Track != "Jingle" || tracks[0].Plays != 3 {
		t.Fatalf("unexpected ranged tracks %+v", tracks)
	}

	from2022, err := st.TopArtists(ctx, store.TopQuery{Limit: 5, From: "2022-01-01"})
	if err != nil {
		t.Fatalf("TopArtists from: %v", err)
	}
	if len(from2022) != 2 || from2022[0].Artist != "Long" || from2022[1].Plays != 1 {
		t.Fatalf("undated rows must not match a bounded query: %+v", from2022)
	}

	years, err := st.Years(ctx, store.TopQuery{})
	if err != nil {
		t.Fatalf("Years: %v", err)
	}
	if len(years) != 3 || years[0].Year != 2021 || years[0].Plays != 3 || years[1].Minutes != 40 || years[2].Artists != 1 {
		t.Fatalf("unexpected years %+v", years)
	}

	for _, q := range []store.TopQuery{
		{Limit: 1, By: "loudness"},
		{Limit: 1, From: "2021-13-01"},
		{Limit: 1, From: "2022-01-01", To: "2021-01-01"},
	} {
		if _, err := st.TopArtists(ctx, q); !errors.Is(err, store.ErrInvalidQuery) {
			t.Fatalf("expected ErrInvalidQuery for %+v, got %v", q, err)
		}
	}
}

func TestCatalogSummaryEmpty(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	summary, err := st.CatalogSummary(context.Background())
	if err != nil {
		t.Fatalf("CatalogSummary: %v", err)
	}
	if summary.Total != 0 || summary.TotalMinutes != 0 || summary.LastLoad != nil || summary.FirstDate != "" {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestOpenPathRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.db")
	st, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := st.BumpSchemaVersionForTest(context.Background(), 99); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	st.Close()

	if _, err := store.OpenPath(path); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
