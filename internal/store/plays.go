package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var playColumns = []string{
	"ms_played", "conn_country", "track_name", "artist_name", "album_name",
	"reason_start", "reason_end", "shuffle", "skipped", "incognito_mode",
	"played_at", "date", "year", "month", "day_of_week", "hour",
	"minutes_played", "is_valid_listen", "track_id", "raw_json",
}

// sqliteMaxVariables is the default SQLITE_MAX_VARIABLE_NUMBER.
const sqliteMaxVariables = 32766

// DefaultBatchSize is the number of rows per INSERT when callers pass 0.
const DefaultBatchSize = 1000

// ReplacePlays deletes the catalog and inserts plays in batches, all in one
// transaction. Readers see either the old catalog or the new one.
func (s *Store) ReplacePlays(ctx context.Context, plays []Play, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if limit := sqliteMaxVariables / len(playColumns); batchSize > limit {
		batchSize = limit
	}

	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		inserted = 0
		if _, err := tx.ExecContext(ctx, `DELETE FROM plays`); err != nil {
			return fmt.Errorf("clear plays: %w", err)
		}
		// Reset AUTOINCREMENT so row ids follow dataset order after a reload.
		if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'plays'`); err != nil {
			return fmt.Errorf("reset plays sequence: %w", err)
		}

		var full *sql.Stmt
		defer func() {
			if full != nil {
				_ = full.Close()
			}
		}()
		for start := 0; start < len(plays); start += batchSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := min(start+batchSize, len(plays))
			batch := plays[start:end]
			args := make([]any, 0, len(batch)*len(playColumns))
			for _, p := range batch {
				args = append(args, playArgs(p)...)
			}
			var err error
			if len(batch) == batchSize {
				if full == nil {
					if full, err = tx.PrepareContext(ctx, insertPlaysQuery(batchSize)); err != nil {
						return fmt.Errorf("prepare play insert: %w", err)
					}
				}
				_, err = full.ExecContext(ctx, args...)
			} else {
				_, err = tx.ExecContext(ctx, insertPlaysQuery(len(batch)), args...)
			}
			if err != nil {
				return fmt.Errorf("insert plays %d-%d: %w", start, end, err)
			}
			inserted += len(batch)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replace plays: %w", err)
	}
	return inserted, nil
}

func insertPlaysQuery(rows int) string {
	row := "(" + makePlaceholders(len(playColumns)) + ")"
	var b strings.Builder
	b.WriteString("INSERT INTO plays (")
	b.WriteString(strings.Join(playColumns, ", "))
	b.WriteString(") VALUES ")
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(row)
	}
	return b.String()
}

func playArgs(p Play) []any {
	return []any{
		nullableInt64(p.MsPlayed),
		nullableString(p.Country),
		nullableString(p.TrackName),
		nullableString(p.ArtistName),
		nullableString(p.AlbumName),
		nullableString(p.ReasonStart),
		nullableString(p.ReasonEnd),
		nullableBool(p.Shuffle),
		nullableBool(p.Skipped),
		nullableBool(p.IncognitoMode),
		nullableTime(p.PlayedAt),
		nullableString(p.Date),
		nullableDatePart(p.Date, p.Year),
		nullableDatePart(p.Date, p.Month),
		nullableString(p.DayOfWeek),
		nullableDatePart(p.Date, p.Hour),
		nullableFloat(p.MinutesPlayed),
		boolToInt(p.IsValidListen),
		nullableString(p.TrackID),
		p.RawJSON,
	}
}

// CountPlays returns the number of catalog rows.
func (s *Store) CountPlays(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM plays`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count plays: %w", err)
	}
	return n, nil
}

// RecordCatalogLoad notes which clean dataset the catalog was loaded from.
func (s *Store) RecordCatalogLoad(ctx context.Context, load CatalogLoad) error {
	if load.LoadedAt.IsZero() {
		load.LoadedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO catalog_loads (loaded_at, source_path, source_sha256, plays) VALUES (?, ?, ?, ?)`,
		formatTime(load.LoadedAt), load.SourcePath, nullableString(load.SourceSHA256), load.Plays,
	)
	if err != nil {
		return fmt.Errorf("record catalog load: %w", err)
	}
	return nil
}

// LastCatalogLoad returns the newest catalog load, or nil if none.
func (s *Store) LastCatalogLoad(ctx context.Context) (*CatalogLoad, error) {
	var (
		load      CatalogLoad
		loadedRaw string
		sha       sql.NullString
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT loaded_at, source_path, source_sha256, plays FROM catalog_loads ORDER BY id DESC LIMIT 1`,
	).Scan(&loadedRaw, &load.SourcePath, &sha, &load.Plays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last catalog load: %w", err)
	}
	if t, err := parseTimeString(loadedRaw); err == nil {
		load.LoadedAt = t
	}
	load.SourceSHA256 = sha.String
	return &load, nil
}
