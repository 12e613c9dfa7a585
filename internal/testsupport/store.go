package testsupport

import (
	"context"
	"testing"

	"clipshift/internal/config"
	"clipshift/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue creates a new queue item for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, sourceURL, title string) *queue.Item {
	t.Helper()

	item, err := store.NewItem(context.Background(), queue.NewItemParams{
		SourceURL: sourceURL,
		Metadata:  queue.Metadata{Title: title},
	})
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	return item
}
