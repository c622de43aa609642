package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"replay/internal/export"
	"replay/internal/fileutil"
	"replay/internal/logging"
	"replay/internal/store"
)

// LoadResult summarizes a catalog load.
type LoadResult struct {
	SourcePath   string        `json:"source_path"`
	SourceSHA256 string        `json:"source_sha256"`
	Stats        DeriveStats   `json:"stats"`
	Inserted     int           `json:"inserted"`
	Duration     time.Duration `json:"duration"`
}

// Load reads the clean dataset at path, derives catalog rows, and replaces
// the catalog with them.
func Load(ctx context.Context, st *store.Store, path string, opts Options, batchSize int, logger *slog.Logger) (*LoadResult, error) {
	started := time.Now()
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "catalog"))

	records, err := export.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("read clean dataset: %w", err)
	}
	sum, _, err := fileutil.SHA256File(path)
	if err != nil {
		return nil, fmt.Errorf("hash clean dataset: %w", err)
	}

	plays, stats := DeriveAll(records, opts)
	if stats.Undecodable > 0 {
		logging.WarnWithContext(logger, "records could not be decoded for the catalog", "catalog_undecodable",
			logging.Int("count", stats.Undecodable),
			logging.String(logging.FieldPath, path),
			logging.String(logging.FieldImpact, "these records are missing from the catalog"),
		)
	}
	logger.Debug("catalog rows derived",
		logging.Int("records", stats.Records),
		logging.Int("plays", stats.Plays),
		logging.Int("episodes", stats.Episodes),
		logging.Int("missing_timestamp", stats.MissingTimestamp),
	)

	inserted, err := st.ReplacePlays(ctx, plays, batchSize)
	if err != nil {
		return nil, err
	}
	if err := st.RecordCatalogLoad(ctx, store.CatalogLoad{SourcePath: path, SourceSHA256: sum, Plays: inserted}); err != nil {
		return nil, err
	}

	result := &LoadResult{
		SourcePath:   path,
		SourceSHA256: sum,
		Stats:        stats,
		Inserted:     inserted,
		Duration:     time.Since(started),
	}
	logger.Info("catalog loaded",
		logging.String(logging.FieldPath, path),
		logging.Int("plays", inserted),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}
