package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable. Missing pipeline paths are
// not an error here; commands that need them call RequirePaths after flag
// overrides are applied.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	return CheckOutputOutsideInput(c.Paths.InputDir, c.Paths.OutputPath, c.Discovery)
}

// CheckOutputOutsideInput rejects an output path that discovery would pick
// up as an export file on the next run.
func CheckOutputOutsideInput(inputDir, outputPath string, discovery Discovery) error {
	if inputDir == "" || outputPath == "" {
		return nil
	}
	rel, err := filepath.Rel(inputDir, outputPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	if !discovery.Recursive && filepath.Dir(rel) != "." {
		return nil
	}
	if matched, _ := filepath.Match(strings.ToLower(discovery.Pattern), strings.ToLower(filepath.Base(outputPath))); matched {
		return errors.New("paths.output_path must not be a file the input discovery pattern would pick up")
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	if _, err := filepath.Match(c.Discovery.Pattern, ""); err != nil {
		return fmt.Errorf("discovery.pattern %q: %w", c.Discovery.Pattern, err)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.Ordering {
	case OrderingInput, OrderingTimestamp:
	default:
		return fmt.Errorf("pipeline.ordering must be %q or %q, got %q", OrderingInput, OrderingTimestamp, c.Pipeline.Ordering)
	}
	if c.Pipeline.Workers > maxWorkers {
		return fmt.Errorf("pipeline.workers must be at most %d", maxWorkers)
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.BatchSize <= 0 {
		return errors.New("catalog.batch_size must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json; got %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

// ValidateOrdering reports whether value names a supported ordering mode.
func ValidateOrdering(value string) error {
	switch value {
	case OrderingInput, OrderingTimestamp:
		return nil
	default:
		return fmt.Errorf("ordering must be %q or %q, got %q", OrderingInput, OrderingTimestamp, value)
	}
}
