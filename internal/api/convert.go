package api

import (
	"sort"
	"time"

	"clipshift/internal/profiles"
	"clipshift/internal/queue"
	"clipshift/internal/stage"
	"clipshift/internal/watch"
	"clipshift/internal/workflow"
)

// FromQueueItem converts a queue item into its wire view.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	view := QueueItem{
		ID:               item.ID,
		SourceURL:        item.SourceURL,
		Position:         item.Position,
		Status:           string(item.Status),
		Title:            item.Metadata.Title,
		Description:      item.Metadata.Description,
		Tags:             append([]string(nil), item.Metadata.Tags...),
		Privacy:          item.Metadata.Privacy,
		Destinations:     append([]string(nil), item.Destinations...),
		Badges:           append([]string(nil), item.Badges...),
		ContentHash:      item.ContentHash,
		DurationSeconds:  item.DurationSeconds,
		Width:            item.Width,
		Height:           item.Height,
		DownloadPercent:  item.DownloadPercent,
		TransformPercent: item.TransformPercent,
		UploadPercent:    item.UploadPercent,
		ProgressMessage:  item.ProgressMessage,
		ErrorMessage:     item.ErrorMessage,
		CreatedAt:        FormatTime(item.CreatedAt),
		UpdatedAt:        FormatTime(item.UpdatedAt),
	}
	if item.LastHeartbeat != nil {
		view.LastHeartbeat = FormatTime(*item.LastHeartbeat)
	}
	for _, result := range item.Results {
		view.Results = append(view.Results, DestinationResult{
			Destination: result.Destination,
			VideoID:     result.VideoID,
			Error:       result.Error,
		})
	}
	return view
}

// FromQueueItems converts a list of queue items, preserving order.
func FromQueueItems(items []*queue.Item) []QueueItem {
	views := make([]QueueItem, 0, len(items))
	for _, item := range items {
		views = append(views, FromQueueItem(item))
	}
	return views
}

// FromStatusSummary converts the workflow manager summary into its wire view.
func FromStatusSummary(summary workflow.StatusSummary) WorkerStatus {
	status := WorkerStatus{
		Running:          summary.Running,
		Paused:           summary.Paused,
		AutoPauseEnabled: summary.AutoPauseEnabled,
		AutoPauseAfter:   summary.AutoPauseAfter,
		LastError:        summary.LastError,
		QueueStats:       MergeQueueStats(summary.QueueStats),
		Stages:           StageHealthSlice(summary.StageHealth),
	}
	if summary.LastItem != nil {
		item := FromQueueItem(summary.LastItem)
		status.LastItem = &item
	}
	return status
}

// FromWatchStatus converts the poller snapshot into its wire view.
func FromWatchStatus(status watch.Status) WatchStatus {
	return WatchStatus{
		Running:   status.Running,
		Handle:    status.Handle,
		LastPoll:  FormatTime(status.LastPoll),
		SeenCount: status.Seen,
		LastError: status.LastErr,
	}
}

// FromProfile converts a stored profile into its wire summary.
func FromProfile(profile profiles.Profile) Profile {
	return Profile{
		Name:      profile.Name,
		Privacy:   profile.Metadata.Privacy,
		Category:  profile.Metadata.Category,
		Tags:      len(profile.Metadata.Tags),
		Playlists: len(profile.Metadata.Playlists),
		UpdatedAt: FormatTime(profile.UpdatedAt),
	}
}

// FromProfiles converts a list of stored profiles, preserving order.
func FromProfiles(list []profiles.Profile) []Profile {
	views := make([]Profile, 0, len(list))
	for _, profile := range list {
		views = append(views, FromProfile(profile))
	}
	return views
}

// StageHealthSlice flattens the health map into a name-sorted slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	views := make([]StageHealth, 0, len(health))
	for _, h := range health {
		views = append(views, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

// MergeQueueStats fills in zero counts so every status is present on the wire.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		merged[string(status)] = stats[status]
	}
	return merged
}

// FormatTime renders a timestamp as RFC 3339 UTC, or empty for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
