package testsupport

import (
	"path/filepath"
	"testing"

	"replay/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The input directory is created empty; the output path is not.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "exports")
	cfgVal.Paths.OutputPath = filepath.Join(base, "out", "clean.json")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	MkdirAll(t, cfgVal.Paths.InputDir)

	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithOrdering sets pipeline.ordering on the test config.
func WithOrdering(ordering string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Ordering = ordering
	}
}

// WithWorkers sets pipeline.workers on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Workers = workers
	}
}

// WithMinListenMs sets catalog.min_listen_ms on the test config.
func WithMinListenMs(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.MinListenMs = ms
	}
}

// WithExports writes the given name -> content files into the input directory.
func WithExports(files map[string]string) ConfigOption {
	return func(b *configBuilder) {
		for name, content := range files {
			WriteExportFile(b.t, b.cfg.Paths.InputDir, name, content)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
