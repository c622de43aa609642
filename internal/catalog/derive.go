package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"replay/internal/config"
	"replay/internal/export"
	"replay/internal/store"
)

const trackURIPrefix = "spotify:track:"

// Options controls derivation.
type Options struct {
	Fields      config.Fields
	MinListenMs int
}

// OptionsFromConfig returns derivation options for cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{Fields: cfg.Fields, MinListenMs: cfg.Catalog.MinListenMs}
}

// DeriveStats counts what DeriveAll did with its input.
type DeriveStats struct {
	Records          int `json:"records"`
	Plays            int `json:"plays"`
	Episodes         int `json:"episodes"`
	MissingTimestamp int `json:"missing_timestamp"`
	Undecodable      int `json:"undecodable"`
}

// Derive builds a catalog row from rec. It reports false when rec is a
// podcast episode and should not be cataloged.
func Derive(rec export.Record, opts Options) (store.Play, bool, error) {
	fields, err := rec.Fields()
	if err != nil {
		return store.Play{}, false, err
	}
	f := opts.Fields
	if name, ok := export.String(fields[f.EpisodeName]); ok && name != "" {
		return store.Play{}, false, nil
	}

	play := store.Play{RawJSON: string(rec.Raw)}
	play.Country = stringField(fields, f.Country)
	play.TrackName = stringField(fields, f.TrackName)
	play.ArtistName = stringField(fields, f.ArtistName)
	play.AlbumName = stringField(fields, f.AlbumName)
	play.ReasonStart = stringField(fields, f.ReasonStart)
	play.ReasonEnd = stringField(fields, f.ReasonEnd)
	play.Shuffle = boolField(fields, f.Shuffle)
	play.Skipped = boolField(fields, f.Skipped)
	play.IncognitoMode = boolField(fields, f.IncognitoMode)
	play.TrackID = TrackID(stringField(fields, f.TrackURI), play.TrackName, play.ArtistName)

	if at, ok := export.ParseTimestamp(fields[f.Timestamp]); ok {
		play.PlayedAt = &at
		play.Date = at.Format("2006-01-02")
		play.Year = at.Year()
		play.Month = int(at.Month())
		play.DayOfWeek = at.Weekday().String()
		play.Hour = at.Hour()
	}

	if ms, ok := export.Int(fields[f.MsPlayed]); ok && ms >= 0 {
		minutes := Minutes(ms)
		play.MsPlayed = &ms
		play.MinutesPlayed = &minutes
		play.IsValidListen = ms >= int64(opts.MinListenMs)
	}
	return play, true, nil
}

// DeriveAll derives a row for every non-episode record, in order.
// Records whose fields cannot be decoded are counted and skipped.
func DeriveAll(records []export.Record, opts Options) ([]store.Play, DeriveStats) {
	stats := DeriveStats{Records: len(records)}
	plays := make([]store.Play, 0, len(records))
	for _, rec := range records {
		play, keep, err := Derive(rec, opts)
		if err != nil {
			stats.Undecodable++
			continue
		}
		if !keep {
			stats.Episodes++
			continue
		}
		if play.PlayedAt == nil {
			stats.MissingTimestamp++
		}
		plays = append(plays, play)
	}
	stats.Plays = len(plays)
	return plays, stats
}

// Minutes converts milliseconds to minutes rounded to two decimals.
func Minutes(ms int64) float64 {
	return math.Round(float64(ms)/600) / 100
}

// TrackID returns the track id from a spotify:track:<id> URI, falling back
// to "track - artist" when no URI is present.
func TrackID(uri, track, artist string) string {
	uri = strings.TrimSpace(uri)
	if id, ok := strings.CutPrefix(uri, trackURIPrefix); ok && id != "" {
		return id
	}
	if track == "" || artist == "" {
		return ""
	}
	return fmt.Sprintf("%s - %s", track, artist)
}

func stringField(fields map[string]json.RawMessage, name string) string {
	if name == "" {
		return ""
	}
	s, _ := export.String(fields[name])
	return strings.TrimSpace(s)
}

func boolField(fields map[string]json.RawMessage, name string) *bool {
	if name == "" {
		return nil
	}
	b, ok := export.Bool(fields[name])
	if !ok {
		return nil
	}
	return &b
}
