package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the export, clean dataset, and state locations.
type Paths struct {
	InputDir   string `toml:"input_dir"`
	OutputPath string `toml:"output_path"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
}

// Discovery controls which files in the input directory count as export files.
type Discovery struct {
	Pattern   string `toml:"pattern"`
	Recursive bool   `toml:"recursive"`
}

// Pipeline contains merge ordering and parse parallelism settings.
type Pipeline struct {
	// Ordering is "input" (file path order, then in-file order) or
	// "timestamp" (stable sort on fields.timestamp after deduplication).
	Ordering string `toml:"ordering"`
	Workers  int    `toml:"workers"`
}

// Output contains clean dataset serialization settings.
type Output struct {
	Indent bool `toml:"indent"`
}

// Fields names the record keys the catalog and timestamp ordering read.
// Export schemas change between services and export generations, so none of
// these are hard-coded.
type Fields struct {
	Timestamp     string `toml:"timestamp"`
	MsPlayed      string `toml:"ms_played"`
	TrackName     string `toml:"track_name"`
	ArtistName    string `toml:"artist_name"`
	AlbumName     string `toml:"album_name"`
	TrackURI      string `toml:"track_uri"`
	Country       string `toml:"country"`
	ReasonStart   string `toml:"reason_start"`
	ReasonEnd     string `toml:"reason_end"`
	Shuffle       string `toml:"shuffle"`
	Skipped       string `toml:"skipped"`
	IncognitoMode string `toml:"incognito_mode"`
	// EpisodeName marks podcast episodes, which the catalog leaves out.
	EpisodeName   string `toml:"episode_name"`
}

// Catalog contains settings for loading the clean dataset into SQLite.
type Catalog struct {
	MinListenMs int  `toml:"min_listen_ms"`
	BatchSize   int  `toml:"batch_size"`
	AutoLoad    bool `toml:"auto_load"`
}

// History controls how many pipeline runs are retained.
type History struct {
	KeepRuns int `toml:"keep_runs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for replay.
//
// Configuration sections by subsystem:
//   - Paths: export folder, clean dataset file, state and log directories
//   - Discovery: export file matching
//   - Pipeline: ordering mode and parse workers
//   - Output: clean dataset formatting
//   - Fields: record field names used by the catalog
//   - Catalog: SQLite catalog loading
//   - History: run history retention
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Discovery Discovery `toml:"discovery"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Output    Output    `toml:"output"`
	Fields    Fields    `toml:"fields"`
	Catalog   Catalog   `toml:"catalog"`
	History   History   `toml:"history"`
	Logging   Logging   `toml:"logging"`
}

// ErrPathsMissing indicates the input directory or output path was never resolved.
var ErrPathsMissing = errors.New("input directory and output path are required")

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("replay.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SetInputDir overrides paths.input_dir, applying the same expansion rules as Load.
func (c *Config) SetInputDir(value string) error {
	expanded, err := expandPath(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("input dir: %w", err)
	}
	c.Paths.InputDir = expanded
	return nil
}

// SetOutputPath overrides paths.output_path, applying the same expansion rules as Load.
func (c *Config) SetOutputPath(value string) error {
	expanded, err := expandPath(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("output path: %w", err)
	}
	c.Paths.OutputPath = expanded
	return nil
}

// RequirePaths reports whether both pipeline paths have been resolved.
func (c *Config) RequirePaths() error {
	var missing []string
	if c.Paths.InputDir == "" {
		missing = append(missing, "paths.input_dir (or REPLAY_INPUT_DIR / --input)")
	}
	if c.Paths.OutputPath == "" {
		missing = append(missing, "paths.output_path (or REPLAY_OUTPUT_PATH / --output)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrPathsMissing, strings.Join(missing, ", "))
	}
	return nil
}

// DatabasePath returns the SQLite database holding run history and the catalog.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "replay.db")
}

// LogPath returns the primary log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "replay.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
