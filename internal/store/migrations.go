package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// migration is one numbered file under migrations/, named NNN_description.sql.
type migration struct {
	number  int
	version string
	sql     string
}

// readMigrations loads every *.sql file in dir ordered by its numeric
// prefix. Files without a prefix or sharing a number are rejected.
func readMigrations(fsys fs.FS, dir string) ([]migration, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byNumber := make(map[int]string, len(names))
	out := make([]migration, 0, len(names))
	for _, name := range names {
		version := strings.TrimSuffix(path.Base(name), ".sql")
		prefix, _, _ := strings.Cut(version, "_")
		number, err := strconv.Atoi(prefix)
		if err != nil || number <= 0 {
			return nil, fmt.Errorf("migration %s: name must start with a positive number", name)
		}
		if other, dup := byNumber[number]; dup {
			return nil, fmt.Errorf("migrations %s and %s share number %d", other, version, number)
		}
		byNumber[number] = version

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		out = append(out, migration{number: number, version: version, sql: string(body)})
	}
	slices.SortFunc(out, func(a, b migration) int { return a.number - b.number })
	return out, nil
}

// applyMigrations runs pending migrations in order, each in its own
// transaction together with its schema_migrations row.
func (s *Store) applyMigrations(ctx context.Context) error {
	pending, err := readMigrations(embeddedMigrations, "migrations")
	if err != nil {
		return err
	}
	if _, err := s.execWithRetry(ctx,
		"CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TEXT NOT NULL)",
	); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := s.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if slices.Contains(applied, m.version) {
			continue
		}
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				m.version, formatTime(time.Now()))
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
	}
	return nil
}

// AppliedMigrations lists recorded migration versions in the order they
// were applied.
func (s *Store) AppliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT version FROM schema_migrations ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()
	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
