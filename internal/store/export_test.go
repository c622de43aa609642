package store

import "context"

// BumpSchemaVersionForTest overwrites the recorded schema version.
func (s *Store) BumpSchemaVersionForTest(ctx context.Context, version int) error {
	_, err := s.db.ExecContext(ctx, "UPDATE schema_version SET version = ?", version)
	return err
}

// HasIndexForTest reports whether the named index exists.
func (s *Store) HasIndexForTest(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", name).Scan(&n)
	return n > 0, err
}
