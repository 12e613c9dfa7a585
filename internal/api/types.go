package api

// QueueItem is the wire view of a queue item.
type QueueItem struct {
	ID           int64    `json:"id"`
	SourceURL    string   `json:"source_url"`
	Position     int64    `json:"position"`
	Status       string   `json:"status"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Privacy      string   `json:"privacy,omitempty"`
	Destinations []string `json:"destinations,omitempty"`
	Badges       []string `json:"badges,omitempty"`

	Results []DestinationResult `json:"results,omitempty"`

	ContentHash     string  `json:"content_hash,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`

	DownloadPercent  float64 `json:"download_percent"`
	TransformPercent float64 `json:"transform_percent"`
	UploadPercent    float64 `json:"upload_percent"`
	ProgressMessage  string  `json:"progress_message,omitempty"`
	ErrorMessage     string  `json:"error_message,omitempty"`

	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	LastHeartbeat string `json:"last_heartbeat,omitempty"`
}

// DestinationResult is the wire view of one destination outcome.
type DestinationResult struct {
	Destination string `json:"destination"`
	VideoID     string `json:"video_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// StageHealth is the wire view of one stage readiness probe.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkerStatus is the wire view of the workflow manager.
type WorkerStatus struct {
	Running          bool           `json:"running"`
	Paused           bool           `json:"paused"`
	AutoPauseEnabled bool           `json:"auto_pause_enabled"`
	AutoPauseAfter   int            `json:"auto_pause_after,omitempty"`
	LastError        string         `json:"last_error,omitempty"`
	LastItem         *QueueItem     `json:"last_item,omitempty"`
	QueueStats       map[string]int `json:"queue_stats"`
	Stages           []StageHealth  `json:"stages,omitempty"`
}

// WatchStatus is the wire view of the discovery poller.
type WatchStatus struct {
	Running   bool   `json:"running"`
	Handle    string `json:"handle,omitempty"`
	LastPoll  string `json:"last_poll,omitempty"`
	SeenCount int    `json:"seen_count"`
	LastError string `json:"last_error,omitempty"`
}

// DaemonStatus aggregates everything the status command reports.
type DaemonStatus struct {
	Running       bool         `json:"running"`
	PID           int          `json:"pid"`
	Version       string       `json:"version"`
	StartedAt     string       `json:"started_at,omitempty"`
	SocketPath    string       `json:"socket_path"`
	QueueDatabase string       `json:"queue_database"`
	LedgerEntries int          `json:"ledger_entries"`
	Workflow      WorkerStatus `json:"workflow"`
	Watch         WatchStatus  `json:"watch"`
}

// Profile is the wire view of a stored metadata profile.
type Profile struct {
	Name      string `json:"name"`
	Privacy   string `json:"privacy,omitempty"`
	Category  string `json:"category,omitempty"`
	Tags      int    `json:"tags"`
	Playlists int    `json:"playlists"`
	UpdatedAt string `json:"updated_at,omitempty"`
}
