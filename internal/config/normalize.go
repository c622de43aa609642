package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiscovery()
	c.normalizePipeline()
	c.normalizeFields()
	c.normalizeCatalog()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		if value, ok := os.LookupEnv(EnvInputDir); ok {
			c.Paths.InputDir = value
		}
	}
	if strings.TrimSpace(c.Paths.OutputPath) == "" {
		if value, ok := os.LookupEnv(EnvOutputPath); ok {
			c.Paths.OutputPath = value
		}
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.InputDir, err = expandPath(strings.TrimSpace(c.Paths.InputDir)); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputPath, err = expandPath(strings.TrimSpace(c.Paths.OutputPath)); err != nil {
		return fmt.Errorf("paths.output_path: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiscovery() {
	c.Discovery.Pattern = strings.TrimSpace(c.Discovery.Pattern)
	if c.Discovery.Pattern == "" {
		c.Discovery.Pattern = defaultPattern
	}
}

func (c *Config) normalizePipeline() {
	c.Pipeline.Ordering = strings.ToLower(strings.TrimSpace(c.Pipeline.Ordering))
	if c.Pipeline.Ordering == "" {
		c.Pipeline.Ordering = defaultOrdering
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = defaultWorkers
	}
}

func (c *Config) normalizeFields() {
	defaults := DefaultFields()
	pairs := []struct {
		value    *string
		fallback string
	}{
		{&c.Fields.Timestamp, defaults.Timestamp},
		{&c.Fields.MsPlayed, defaults.MsPlayed},
		{&c.Fields.TrackName, defaults.TrackName},
		{&c.Fields.ArtistName, defaults.ArtistName},
		{&c.Fields.AlbumName, defaults.AlbumName},
		{&c.Fields.TrackURI, defaults.TrackURI},
		{&c.Fields.Country, defaults.Country},
		{&c.Fields.ReasonStart, defaults.ReasonStart},
		{&c.Fields.ReasonEnd, defaults.ReasonEnd},
		{&c.Fields.Shuffle, defaults.Shuffle},
		{&c.Fields.Skipped, defaults.Skipped},
		{&c.Fields.IncognitoMode, defaults.IncognitoMode},
		{&c.Fields.EpisodeName, defaults.EpisodeName},
	}
	for _, pair := range pairs {
		*pair.value = strings.TrimSpace(*pair.value)
		if *pair.value == "" {
			*pair.value = pair.fallback
		}
	}
}

func (c *Config) normalizeCatalog() {
	if c.Catalog.BatchSize <= 0 {
		c.Catalog.BatchSize = defaultCatalogBatchSize
	}
	if c.Catalog.MinListenMs < 0 {
		c.Catalog.MinListenMs = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
