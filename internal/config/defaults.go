package config

const (
	defaultConfigPath       = "~/.config/replay/config.toml"
	defaultDataDir          = "~/.local/share/replay"
	defaultLogDir           = "~/.local/share/replay/logs"
	defaultPattern          = "*.json"
	defaultOrdering         = OrderingInput
	defaultWorkers          = 1
	defaultMinListenMs      = 30000
	defaultCatalogBatchSize = 1000
	defaultKeepRuns         = 200
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	maxWorkers              = 64
)

// Ordering modes for the clean dataset.
const (
	OrderingInput     = "input"
	OrderingTimestamp = "timestamp"
)

// Environment variables consulted when the matching path is unset.
const (
	EnvInputDir   = "REPLAY_INPUT_DIR"
	EnvOutputPath = "REPLAY_OUTPUT_PATH"
)

// DefaultFields returns the field names used by the extended streaming
// history export.
func DefaultFields() Fields {
	return Fields{
		Timestamp:     "ts",
		MsPlayed:      "ms_played",
		TrackName:     "master_metadata_track_name",
		ArtistName:    "master_metadata_album_artist_name",
		AlbumName:     "master_metadata_album_album_name",
		TrackURI:      "spotify_track_uri",
		Country:       "conn_country",
		ReasonStart:   "reason_start",
		ReasonEnd:     "reason_end",
		Shuffle:       "shuffle",
		Skipped:       "skipped",
		IncognitoMode: "incognito_mode",
		EpisodeName:   "episode_name",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Discovery: Discovery{
			Pattern: defaultPattern,
		},
		Pipeline: Pipeline{
			Ordering: defaultOrdering,
			Workers:  defaultWorkers,
		},
		Fields: DefaultFields(),
		Catalog: Catalog{
			MinListenMs: defaultMinListenMs,
			BatchSize:   defaultCatalogBatchSize,
		},
		History: History{
			KeepRuns: defaultKeepRuns,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
