package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"replay/internal/config"
)

func TestLoadDefaultConfigUsesEnvPathsAndExpands(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvInputDir, "~/export")
	t.Setenv(config.EnvOutputPath, "~/out/clean.json")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.InputDir != filepath.Join(tempHome, "export") {
		t.Fatalf("unexpected input dir: %q", cfg.Paths.InputDir)
	}
	if cfg.Paths.OutputPath != filepath.Join(tempHome, "out", "clean.json") {
		t.Fatalf("unexpected output path: %q", cfg.Paths.OutputPath)
	}
	wantData := filepath.Join(tempHome, ".local", "share", "replay")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Pipeline.Ordering != config.OrderingInput {
		t.Fatalf("expected input ordering by default, got %q", cfg.Pipeline.Ordering)
	}
	if cfg.Pipeline.Workers != 1 {
		t.Fatalf("expected one worker by default, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Discovery.Pattern != "*.json" {
		t.Fatalf("unexpected discovery pattern %q", cfg.Discovery.Pattern)
	}
	if cfg.Fields.Timestamp != "ts" {
		t.Fatalf("unexpected timestamp field %q", cfg.Fields.Timestamp)
	}
	if cfg.Catalog.BatchSize != 1000 || cfg.Catalog.MinListenMs != 30000 {
		t.Fatalf("unexpected catalog defaults: %+v", cfg.Catalog)
	}
	if err := cfg.RequirePaths(); err != nil {
		t.Fatalf("RequirePaths: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv(config.EnvInputDir, "")
	t.Setenv(config.EnvOutputPath, "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "replay.toml")

	type payload struct {
		Paths struct {
			InputDir   string `toml:"input_dir"`
			OutputPath string `toml:"output_path"`
		} `toml:"paths"`
		Pipeline struct {
			Ordering string `toml:"ordering"`
			Workers  int    `toml:"workers"`
		} `toml:"pipeline"`
		Fields struct {
			Timestamp string `toml:"timestamp"`
		} `toml:"fields"`
	}
	custom := payload{}
	custom.Paths.InputDir = filepath.Join(tempDir, "export")
	custom.Paths.OutputPath = filepath.Join(tempDir, "clean.json")
	custom.Pipeline.Ordering = "Timestamp"
	custom.Pipeline.Workers = 4
	custom.Fields.Timestamp = "endTime"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Pipeline.Ordering != config.OrderingTimestamp {
		t.Fatalf("expected ordering normalized to timestamp, got %q", cfg.Pipeline.Ordering)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Fields.Timestamp != "endTime" {
		t.Fatalf("expected timestamp field override, got %q", cfg.Fields.Timestamp)
	}
	if cfg.Fields.MsPlayed != "ms_played" {
		t.Fatalf("expected unset field to keep default, got %q", cfg.Fields.MsPlayed)
	}
}

func TestFilePathsWinOverEnvironment(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "replay.toml")
	content := "[paths]\ninput_dir = \"" + filepath.ToSlash(filepath.Join(tempDir, "from-file")) + "\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.EnvInputDir, filepath.Join(tempDir, "from-env"))
	t.Setenv(config.EnvOutputPath, filepath.Join(tempDir, "env.json"))

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.InputDir != filepath.Join(tempDir, "from-file") {
		t.Errorf("expected input dir from file, got %q", cfg.Paths.InputDir)
	}
	if cfg.Paths.OutputPath != filepath.Join(tempDir, "env.json") {
		t.Errorf("expected output path from env, got %q", cfg.Paths.OutputPath)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "replay.toml")
	if err := os.WriteFile(configPath, []byte("[pipeline]\nworkerz = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestRequirePathsReportsMissing(t *testing.T) {
	cfg := config.Default()
	err := cfg.RequirePaths()
	if !errors.Is(err, config.ErrPathsMissing) {
		t.Fatalf("expected ErrPathsMissing, got %v", err)
	}
	if !strings.Contains(err.Error(), "paths.input_dir") || !strings.Contains(err.Error(), "paths.output_path") {
		t.Fatalf("expected both keys named, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "REPLAY_INPUT_DIR") {
		t.Fatalf("sample config missing env var hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "replay") {
		t.Fatalf("expected data dir to contain replay, got %q", cfg.Paths.DataDir)
	}
	if cfg.Catalog.BatchSize != 1000 {
		t.Fatalf("expected sample batch size 1000, got %d", cfg.Catalog.BatchSize)
	}
}

func TestSampleLoadsStrictly(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Ordering = "random"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown ordering")
	}

	cfg = config.Default()
	cfg.Pipeline.Workers = 1000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for too many workers")
	}

	cfg = config.Default()
	cfg.Discovery.Pattern = "[json"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for malformed pattern")
	}

	cfg = config.Default()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}

	cfg = config.Default()
	cfg.Catalog.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero batch size")
	}
}

func TestValidateRejectsOutputInsideDiscovery(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = dir
	cfg.Paths.OutputPath = filepath.Join(dir, "clean.json")
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when output would be rediscovered")
	}

	cfg.Paths.OutputPath = filepath.Join(dir, "nested", "clean.json")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("non-recursive discovery should ignore nested output: %v", err)
	}

	cfg.Discovery.Recursive = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for nested output with recursive discovery")
	}

	cfg.Paths.OutputPath = filepath.Join(dir, "clean.out")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("non-matching output name should pass: %v", err)
	}
}
