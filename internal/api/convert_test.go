package api

import (
	"testing"
	"time"

	"clipshift/internal/queue"
	"clipshift/internal/stage"
	"clipshift/internal/workflow"
)

func TestFromQueueItemCopiesEverything(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	heartbeat := created.Add(time.Minute)
	item := &queue.Item{
		ID:        7,
		SourceURL: "https://example.com/v/7",
		Position:  3,
		Status:    queue.StatusUploading,
		Metadata: queue.Metadata{
			Title:   "Morning Clip",
			Tags:    []string{"cooking", "shorts"},
			Privacy: "public",
		},
		Destinations:    []string{"youtube"},
		Results:         []queue.DestinationResult{{Destination: "youtube", VideoID: "abc"}},
		Badges:          []string{"short-form"},
		ContentHash:     "deadbeef",
		DurationSeconds: 42,
		Width:           1080,
		Height:          1920,
		UploadPercent:   55,
		ProgressMessage: "Uploading chunk 5",
		CreatedAt:       created,
		UpdatedAt:       created,
		LastHeartbeat:   &heartbeat,
	}

	view := FromQueueItem(item)
	if view.ID != 7 || view.Status != "uploading" || view.Title != "Morning Clip" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.CreatedAt != "2026-03-01T09:30:00Z" {
		t.Fatalf("unexpected created_at: %s", view.CreatedAt)
	}
	if view.LastHeartbeat != "2026-03-01T09:31:00Z" {
		t.Fatalf("unexpected heartbeat: %s", view.LastHeartbeat)
	}
	if len(view.Results) != 1 || view.Results[0].VideoID != "abc" {
		t.Fatalf("unexpected results: %+v", view.Results)
	}

	// The view owns its slices.
	view.Tags[0] = "mutated"
	if item.Metadata.Tags[0] != "cooking" {
		t.Fatal("converted view must not alias the source item")
	}
}

func TestFromQueueItemNil(t *testing.T) {
	view := FromQueueItem(nil)
	if view.ID != 0 || view.Status != "" {
		t.Fatalf("expected zero view, got %+v", view)
	}
}

func TestMergeQueueStatsFillsAllStatuses(t *testing.T) {
	merged := MergeQueueStats(map[queue.Status]int{queue.StatusPending: 2})
	if len(merged) != len(queue.AllStatuses()) {
		t.Fatalf("expected every status present, got %d entries", len(merged))
	}
	if merged["pending"] != 2 || merged["completed"] != 0 {
		t.Fatalf("unexpected merged stats: %+v", merged)
	}
}

func TestStageHealthSliceSorted(t *testing.T) {
	health := map[string]stage.Health{
		"publish":   stage.Healthy("publish"),
		"fetch":     stage.Unhealthy("fetch", "yt-dlp missing"),
		"transform": stage.Healthy("transform"),
	}
	views := StageHealthSlice(health)
	if len(views) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(views))
	}
	if views[0].Name != "fetch" || views[1].Name != "publish" || views[2].Name != "transform" {
		t.Fatalf("expected name-sorted slice, got %+v", views)
	}
	if views[0].Ready || views[0].Detail == "" {
		t.Fatalf("expected unhealthy fetch with detail, got %+v", views[0])
	}
}

func TestFromStatusSummaryCarriesLastItem(t *testing.T) {
	summary := workflow.StatusSummary{
		Running:  true,
		Paused:   true,
		LastItem: &queue.Item{ID: 12, Status: queue.StatusFailed},
		QueueStats: map[queue.Status]int{
			queue.StatusFailed: 1,
		},
	}
	view := FromStatusSummary(summary)
	if !view.Running || !view.Paused {
		t.Fatalf("unexpected flags: %+v", view)
	}
	if view.LastItem == nil || view.LastItem.ID != 12 {
		t.Fatalf("expected last item on the wire, got %+v", view.LastItem)
	}
	if view.QueueStats["failed"] != 1 {
		t.Fatalf("unexpected stats: %+v", view.QueueStats)
	}
}

func TestFormatTimeZero(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "" {
		t.Fatalf("expected empty string for zero time, got %q", got)
	}
}
