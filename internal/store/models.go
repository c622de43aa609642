package store

import "time"

// RunStatus is the lifecycle state of a recorded pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one row of pipeline run history.
type Run struct {
	ID                string     `json:"id"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	Status            RunStatus  `json:"status"`
	InputDir          string     `json:"input_dir"`
	OutputPath        string     `json:"output_path"`
	FilesSeen         int        `json:"files_seen"`
	FilesSkipped      int        `json:"files_skipped"`
	RecordsRead       int        `json:"records_read"`
	DuplicatesRemoved int        `json:"duplicates_removed"`
	RecordsWritten    int        `json:"records_written"`
	OutputSHA256      string     `json:"output_sha256,omitempty"`
	OutputBytes       int64      `json:"output_bytes"`
	ErrorKind         string     `json:"error_kind,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
}

// Duration reports how long a finished run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunOutcome carries the final counts written by FinishRun.
type RunOutcome struct {
	Status            RunStatus
	FilesSeen         int
	FilesSkipped      int
	RecordsRead       int
	DuplicatesRemoved int
	RecordsWritten    int
	OutputSHA256      string
	OutputBytes       int64
	ErrorKind         string
	ErrorMessage      string
}

// SkippedFile records an export file a run excluded.
type SkippedFile struct {
	RunID  string `json:"run_id"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Play is one catalog row derived from a clean dataset record. Pointer and
// zero values mean the source record lacked the field.
type Play struct {
	MsPlayed      *int64
	Country       string
	TrackName     string
	ArtistName    string
	AlbumName     string
	ReasonStart   string
	ReasonEnd     string
	Shuffle       *bool
	Skipped       *bool
	IncognitoMode *bool
	PlayedAt      *time.Time
	Date          string
	Year          int
	Month         int
	DayOfWeek     string
	Hour          int
	MinutesPlayed *float64
	IsValidListen bool
	TrackID       string
	RawJSON       string
}

// CatalogLoad records one replacement of the catalog.
type CatalogLoad struct {
	LoadedAt     time.Time `json:"loaded_at"`
	SourcePath   string    `json:"source_path"`
	SourceSHA256 string    `json:"source_sha256,omitempty"`
	Plays        int       `json:"plays"`
}

// PlaySample is a short view of a catalog row for summaries.
type PlaySample struct {
	PlayedAt      string  `json:"played_at"`
	TrackName     string  `json:"track_name"`
	ArtistName    string  `json:"artist_name"`
	MinutesPlayed float64 `json:"minutes_played"`
}

// CatalogSummary describes catalog completeness and totals.
type CatalogSummary struct {
	Total          int          `json:"total"`
	WithTrackName  int          `json:"with_track_name"`
	WithMinutes    int          `json:"with_minutes"`
	WithDate       int          `json:"with_date"`
	FirstDate      string       `json:"first_date,omitempty"`
	LastDate       string       `json:"last_date,omitempty"`
	TotalMinutes   float64      `json:"total_minutes"`
	ValidListens   int          `json:"valid_listens"`
	DistinctTracks int          `json:"distinct_tracks"`
	Sample         []PlaySample `json:"sample,omitempty"`
	LastLoad       *CatalogLoad `json:"last_load,omitempty"`
}

// ArtistCount aggregates plays per artist.
type ArtistCount struct {
	Artist  string  `json:"artist"`
	Plays   int     `json:"plays"`
	Minutes float64 `json:"minutes"`
}

// TrackCount aggregates plays per track.
type TrackCount struct {
	Track   string  `json:"track"`
	Artist  string  `json:"artist"`
	Plays   int     `json:"plays"`
	Minutes float64 `json:"minutes"`
}

// YearCount aggregates dated plays for one calendar year.
type YearCount struct {
	Year         int     `json:"year"`
	Plays        int     `json:"plays"`
	Minutes      float64 `json:"minutes"`
	ValidListens int     `json:"valid_listens"`
	Artists      int     `json:"artists"`
}
