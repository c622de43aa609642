package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const summarySampleSize = 5

// CatalogSummary reports completeness counts, the covered date range, and a
// few sample rows.
func (s *Store) CatalogSummary(ctx context.Context) (CatalogSummary, error) {
	ctx = ensureContext(ctx)
	var (
		summary   CatalogSummary
		firstDate sql.NullString
		lastDate  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT
            COUNT(1),
            COALESCE(SUM(CASE WHEN track_name IS NOT NULL AND track_name <> '' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN minutes_played IS NOT NULL THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN date IS NOT NULL THEN 1 ELSE 0 END), 0),
            MIN(date),
            MAX(date),
            COALESCE(SUM(minutes_played), 0),
            COALESCE(SUM(is_valid_listen), 0),
            COUNT(DISTINCT COALESCE(track_id, track_name))
        FROM plays`,
	).Scan(
		&summary.Total,
		&summary.WithTrackName,
		&summary.WithMinutes,
		&summary.WithDate,
		&firstDate,
		&lastDate,
		&summary.TotalMinutes,
		&summary.ValidListens,
		&summary.DistinctTracks,
	)
	if err != nil {
		return CatalogSummary{}, fmt.Errorf("catalog summary: %w", err)
	}
	summary.FirstDate = firstDate.String
	summary.LastDate = lastDate.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(played_at, ''), COALESCE(track_name, ''), COALESCE(artist_name, ''), COALESCE(minutes_played, 0)
        FROM plays ORDER BY id LIMIT ?`, summarySampleSize)
	if err != nil {
		return CatalogSummary{}, fmt.Errorf("catalog sample: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sample PlaySample
		if err := rows.Scan(&sample.PlayedAt, &sample.TrackName, &sample.ArtistName, &sample.MinutesPlayed); err != nil {
			return CatalogSummary{}, err
		}
		summary.Sample = append(summary.Sample, sample)
	}
	if err := rows.Err(); err != nil {
		return CatalogSummary{}, err
	}

	summary.LastLoad, err = s.LastCatalogLoad(ctx)
	if err != nil {
		return CatalogSummary{}, err
	}
	return summary, nil
}

// Rankings accepted by TopQuery.By.
const (
	RankByPlays   = "plays"
	RankByMinutes = "minutes"
)

const dateLayout = "2006-01-02"

// ErrInvalidQuery reports a TopQuery with an unknown ranking or bad dates.
var ErrInvalidQuery = errors.New("invalid catalog query")

// TopQuery filters and orders the top artist and track lists. From and To
// are inclusive YYYY-MM-DD bounds on the play date; empty means open.
type TopQuery struct {
	Limit int
	By    string
	From  string
	To    string
}

// Validate reports ErrInvalidQuery for an unknown ranking or bad date range.
func (q TopQuery) Validate() error {
	switch q.By {
	case "", RankByPlays, RankByMinutes:
	default:
		return fmt.Errorf("%w: rank by %q, want %s or %s", ErrInvalidQuery, q.By, RankByPlays, RankByMinutes)
	}
	for _, d := range []string{q.From, q.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidQuery, d)
		}
	}
	if q.From != "" && q.To != "" && q.From > q.To {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidQuery, q.From, q.To)
	}
	return nil
}

// dateFilter returns the extra WHERE terms and args for the date bounds.
// Rows without a date never match a bounded query.
func (q TopQuery) dateFilter() (string, []any) {
	var (
		clause strings.Builder
		args   []any
	)
	if q.From != "" {
		clause.WriteString(" AND date >= ?")
		args = append(args, q.From)
	}
	if q.To != "" {
		clause.WriteString(" AND date <= ?")
		args = append(args, q.To)
	}
	return clause.String(), args
}

func (q TopQuery) orderBy(name string) string {
	if q.By == RankByMinutes {
		return "COALESCE(SUM(minutes_played), 0) DESC, COUNT(1) DESC, " + name
	}
	return "COUNT(1) DESC, COALESCE(SUM(minutes_played), 0) DESC, " + name
}

// TopArtists returns the top q.Limit artists, ties broken by name.
func (s *Store) TopArtists(ctx context.Context, q TopQuery) ([]ArtistCount, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	filter, args := q.dateFilter()
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT artist_name, COUNT(1), COALESCE(SUM(minutes_played), 0)
        FROM plays
        WHERE artist_name IS NOT NULL AND artist_name <> ''`+filter+`
        GROUP BY artist_name
        ORDER BY `+q.orderBy("artist_name ASC")+`
        LIMIT ?`, append(args, q.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("top artists: %w", err)
	}
	defer rows.Close()
	var out []ArtistCount
	for rows.Next() {
		var a ArtistCount
		if err := rows.Scan(&a.Artist, &a.Plays, &a.Minutes); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// TopTracks returns the top q.Limit tracks, ties broken by track then artist.
func (s *Store) TopTracks(ctx context.Context, q TopQuery) ([]TrackCount, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	filter, args := q.dateFilter()
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT track_name, COALESCE(artist_name, ''), COUNT(1), COALESCE(SUM(minutes_played), 0)
        FROM plays
        WHERE track_name IS NOT NULL AND track_name <> ''`+filter+`
        GROUP BY track_name, artist_name
        ORDER BY `+q.orderBy("track_name ASC, artist_name ASC")+`
        LIMIT ?`, append(args, q.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("top tracks: %w", err)
	}
	defer rows.Close()
	var out []TrackCount
	for rows.Next() {
		var t TrackCount
		if err := rows.Scan(&t.Track, &t.Artist, &t.Plays, &t.Minutes); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Years breaks dated plays down per calendar year, oldest first. Only the
// date bounds of q apply.
func (s *Store) Years(ctx context.Context, q TopQuery) ([]YearCount, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	filter, args := q.dateFilter()
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT year, COUNT(1), COALESCE(SUM(minutes_played), 0), COALESCE(SUM(is_valid_listen), 0),
            COUNT(DISTINCT artist_name)
        FROM plays
        WHERE year IS NOT NULL`+filter+`
        GROUP BY year
        ORDER BY year`, args...)
	if err != nil {
		return nil, fmt.Errorf("plays per year: %w", err)
	}
	defer rows.Close()
	var out []YearCount
	for rows.Next() {
		var y YearCount
		if err := rows.Scan(&y.Year, &y.Plays, &y.Minutes, &y.ValidListens, &y.Artists); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}
