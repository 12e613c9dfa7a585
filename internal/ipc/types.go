package ipc

import (
	"clipshift/internal/api"
	"clipshift/internal/profiles"
	"clipshift/internal/queue"
)

// ServiceName is the JSON-RPC receiver name registered on the socket.
const ServiceName = "Clipshift"

// Empty is the request or reply for operations that carry no data.
type Empty struct{}

// StatusResponse carries the full daemon snapshot.
type StatusResponse struct {
	Status api.DaemonStatus `json:"status"`
}

// QueueListRequest optionally filters by status names.
type QueueListRequest struct {
	Statuses []string `json:"statuses,omitempty"`
}

// QueueListResponse carries the ordered queue contents.
type QueueListResponse struct {
	Items []api.QueueItem `json:"items"`
}

// QueueGetRequest addresses one item by id.
type QueueGetRequest struct {
	ID int64 `json:"id"`
}

// QueueGetResponse carries the item, or nil when it does not exist.
type QueueGetResponse struct {
	Item *api.QueueItem `json:"item,omitempty"`
}

// QueueAddRequest carries one enqueue request.
type QueueAddRequest struct {
	SourceURL    string                 `json:"source_url"`
	Metadata     queue.Metadata         `json:"metadata"`
	Transform    queue.TransformOptions `json:"transform"`
	Transport    queue.TransportOptions `json:"transport"`
	Destinations []string               `json:"destinations,omitempty"`
	Profile      string                 `json:"profile,omitempty"`
	Prefill      bool                   `json:"prefill,omitempty"`
}

// QueueAddResponse carries the created item.
type QueueAddResponse struct {
	Item api.QueueItem `json:"item"`
}

// QueueImportRequest carries a batch of source URLs with shared settings.
type QueueImportRequest struct {
	URLs         []string               `json:"urls"`
	Metadata     queue.Metadata         `json:"metadata"`
	Transform    queue.TransformOptions `json:"transform"`
	Transport    queue.TransportOptions `json:"transport"`
	Destinations []string               `json:"destinations,omitempty"`
	Profile      string                 `json:"profile,omitempty"`
}

// QueueImportResponse summarizes the batch outcome.
type QueueImportResponse struct {
	Enqueued int      `json:"enqueued"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// QueueMoveRequest swaps one item with a neighbor.
type QueueMoveRequest struct {
	ID        int64  `json:"id"`
	Direction string `json:"direction"`
}

// QueueMoveResponse reports whether a swap happened.
type QueueMoveResponse struct {
	Moved bool `json:"moved"`
}

// QueueRemoveRequest deletes one item.
type QueueRemoveRequest struct {
	ID int64 `json:"id"`
}

// QueueRemoveResponse reports whether the item existed.
type QueueRemoveResponse struct {
	Removed bool `json:"removed"`
}

// QueueClearRequest selects which items to delete.
type QueueClearRequest struct {
	CompletedOnly bool `json:"completed_only"`
}

// QueueClearResponse reports how many rows were deleted.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueRetryRequest re-queues failed items; empty IDs means all of them.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids,omitempty"`
}

// QueueRetryResponse reports how many items were re-queued.
type QueueRetryResponse struct {
	Retried int64 `json:"retried"`
}

// QueueResetResponse reports how many in-flight items were reset.
type QueueResetResponse struct {
	Reset int64 `json:"reset"`
}

// QueueStatsResponse carries per-status counts.
type QueueStatsResponse struct {
	Stats map[string]int `json:"stats"`
}

// AutoPauseRequest reconfigures pause-after-N-completions.
type AutoPauseRequest struct {
	Enabled bool `json:"enabled"`
	After   int  `json:"after"`
}

// WatchStatusResponse carries the poller snapshot.
type WatchStatusResponse struct {
	Status api.WatchStatus `json:"status"`
}

// WatchPollResponse reports one on-demand discovery cycle.
type WatchPollResponse struct {
	Enqueued int `json:"enqueued"`
}

// ProfileListResponse carries stored profile summaries.
type ProfileListResponse struct {
	Profiles []api.Profile `json:"profiles"`
}

// ProfileGetRequest addresses one profile by name.
type ProfileGetRequest struct {
	Name string `json:"name"`
}

// ProfileGetResponse carries the full profile.
type ProfileGetResponse struct {
	Profile profiles.Profile `json:"profile"`
}

// ProfileSaveRequest creates or replaces a profile.
type ProfileSaveRequest struct {
	Profile profiles.Profile `json:"profile"`
}

// ProfileDeleteRequest removes a profile by name.
type ProfileDeleteRequest struct {
	Name string `json:"name"`
}

// ProfileDuplicateRequest copies a profile under a new name.
type ProfileDuplicateRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ProfileExportRequest writes one profile to a file on the daemon host.
type ProfileExportRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ProfileImportRequest reads a profile file on the daemon host.
type ProfileImportRequest struct {
	Path string `json:"path"`
}

// PrefillRequest probes source metadata.
type PrefillRequest struct {
	SourceURL string `json:"source_url"`
}

// PrefillResponse carries the probed metadata fields.
type PrefillResponse struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags,omitempty"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// PurgeTempResponse reports how many scratch entries were removed.
type PurgeTempResponse struct {
	Removed int `json:"removed"`
}
