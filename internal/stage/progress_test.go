package stage_test

import (
	"context"
	"testing"
	"time"

	"clipshift/internal/queue"
	"clipshift/internal/stage"
	"clipshift/internal/testsupport"
)

func TestProgressSaverThrottlesWrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "clip")

	saver := stage.NewProgressSaver(store, time.Hour)

	item.DownloadPercent = 10
	saver.Save(context.Background(), item)
	item.DownloadPercent = 50
	saver.Save(context.Background(), item)

	persisted, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if persisted.DownloadPercent != 10 {
		t.Fatalf("second save within the interval must be dropped, got %v", persisted.DownloadPercent)
	}
}

func TestProgressSaverWritesAfterInterval(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.Enqueue(t, store, "https://example.com/v/1", "clip")

	saver := stage.NewProgressSaver(store, time.Nanosecond)

	item.DownloadPercent = 10
	saver.Save(context.Background(), item)
	time.Sleep(time.Millisecond)
	item.DownloadPercent = 50
	saver.Save(context.Background(), item)

	persisted, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if persisted.DownloadPercent != 50 {
		t.Fatalf("expected second save to land, got %v", persisted.DownloadPercent)
	}
}

func TestProgressSaverToleratesMissingCollaborators(t *testing.T) {
	var saver *stage.ProgressSaver
	saver.Save(context.Background(), &queue.Item{ID: 1})

	stage.NewProgressSaver(nil, 0).Save(context.Background(), &queue.Item{ID: 1})
	stage.NewProgressSaver(nil, 0).Save(context.Background(), nil)
}
