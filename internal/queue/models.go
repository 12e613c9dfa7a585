package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusDownloaded   Status = "downloaded"
	StatusTransforming Status = "transforming"
	StatusTransformed  Status = "transformed"
	StatusUploading    Status = "uploading"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusDownloaded,
	StatusTransforming,
	StatusTransformed,
	StatusUploading,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading:  {},
	StatusTransforming: {},
	StatusUploading:    {},
}

// actionableStatuses are the resting states the worker picks up from,
// including mid-chain resume after a daemon restart.
var actionableStatuses = []Status{
	StatusPending,
	StatusDownloaded,
	StatusTransformed,
}

// TransformMode selects the aspect handling strategy.
type TransformMode string

const (
	TransformNone TransformMode = ""
	TransformCrop TransformMode = "crop"
	TransformPad  TransformMode = "pad"
)

// WatermarkPosition names one of the four supported overlay corners.
type WatermarkPosition string

const (
	WatermarkTopLeft     WatermarkPosition = "top-left"
	WatermarkTopRight    WatermarkPosition = "top-right"
	WatermarkBottomLeft  WatermarkPosition = "bottom-left"
	WatermarkBottomRight WatermarkPosition = "bottom-right"
)

// Metadata holds the destination publishing fields for one item. Optional
// fields use pointers or zero values so absent values stay absent on the wire.
type Metadata struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags,omitempty"`
	Privacy     string     `json:"privacy,omitempty"`
	Category    string     `json:"category,omitempty"`
	Language    string     `json:"language,omitempty"`
	License     string     `json:"license,omitempty"`
	PublishAt   *time.Time `json:"publish_at,omitempty"`
	Playlists   []string   `json:"playlists,omitempty"`
	MadeForKids *bool      `json:"made_for_kids,omitempty"`
	Embeddable  *bool      `json:"embeddable,omitempty"`
}

// TransformOptions describes the requested media processing for one item.
type TransformOptions struct {
	Mode              TransformMode     `json:"mode,omitempty"`
	TargetWidth       int               `json:"target_width,omitempty"`
	TargetHeight      int               `json:"target_height,omitempty"`
	TrimStart         float64           `json:"trim_start,omitempty"`
	TrimEnd           float64           `json:"trim_end,omitempty"`
	NormalizeAudio    bool              `json:"normalize_audio,omitempty"`
	WatermarkPath     string            `json:"watermark_path,omitempty"`
	WatermarkPosition WatermarkPosition `json:"watermark_position,omitempty"`
	WatermarkOpacity  float64           `json:"watermark_opacity,omitempty"`
}

// Requested reports whether any processing beyond the compatibility remux was
// asked for.
func (t TransformOptions) Requested() bool {
	return t.Mode != TransformNone ||
		t.TrimStart > 0 || t.TrimEnd > 0 ||
		t.NormalizeAudio ||
		strings.TrimSpace(t.WatermarkPath) != ""
}

// TransportOptions carries per-item overrides for the upload engine. Zero
// values fall back to configuration defaults.
type TransportOptions struct {
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	Proxy          string `json:"proxy,omitempty"`
	ChunkSizeMB    int    `json:"chunk_size_mb,omitempty"`
	MaxRetries     *int   `json:"max_retries,omitempty"`
	Profile        string `json:"profile,omitempty"`
}

// DestinationResult records the outcome of publishing to one destination.
type DestinationResult struct {
	Destination string `json:"destination"`
	VideoID     string `json:"video_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID           int64
	SourceURL    string
	Position     int64
	Status       Status
	Metadata     Metadata
	Transform    TransformOptions
	Transport    TransportOptions
	Destinations []string
	Results      []DestinationResult
	Badges       []string

	SourceFile      string
	TransformedFile string
	ContentHash     string
	DurationSeconds float64
	Width           int
	Height          int

	DownloadPercent  float64
	TransformPercent float64
	UploadPercent    float64
	ProgressMessage  string
	ErrorMessage     string

	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ActionableStatuses returns the resting states the worker loop drains.
func ActionableStatuses() []Status {
	cp := make([]Status, len(actionableStatuses))
	copy(cp, actionableStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status will never be picked up again by the
// worker without explicit operator action.
func IsTerminal(status Status) bool {
	return status == StatusCompleted || status == StatusFailed
}

// UploadFile returns the file the upload stage should send: the transform
// output when one exists, otherwise the fetched source file.
func (i Item) UploadFile() string {
	if i.TransformedFile != "" {
		return i.TransformedFile
	}
	return i.SourceFile
}

// AddBadge appends a badge marker unless it is already present.
func (i *Item) AddBadge(badge string) {
	badge = strings.TrimSpace(badge)
	if badge == "" {
		return
	}
	for _, existing := range i.Badges {
		if existing == badge {
			return
		}
	}
	i.Badges = append(i.Badges, badge)
}

// ResultFor returns the recorded result for a destination, if any.
func (i Item) ResultFor(destination string) (DestinationResult, bool) {
	for _, result := range i.Results {
		if result.Destination == destination {
			return result, true
		}
	}
	return DestinationResult{}, false
}

// SetResult records or replaces the result for one destination.
func (i *Item) SetResult(result DestinationResult) {
	for idx, existing := range i.Results {
		if existing.Destination == result.Destination {
			i.Results[idx] = result
			return
		}
	}
	i.Results = append(i.Results, result)
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressMessage = message
	i.LastHeartbeat = nil
}

// SetCompleted marks the item as completed. Every phase that ran reads 100.
func (i *Item) SetCompleted(message string) {
	i.Status = StatusCompleted
	i.DownloadPercent = 100
	i.TransformPercent = 100
	i.UploadPercent = 100
	i.ProgressMessage = message
	i.ErrorMessage = ""
	i.LastHeartbeat = nil
}
