package stage

import (
	"context"
	"time"

	"clipshift/internal/queue"
)

const defaultProgressInterval = 2 * time.Second

// ProgressSaver persists mid-stage progress updates so the queue row tracks a
// long download or upload while it runs. Writes are throttled; a callback
// firing faster than the interval only mutates the in-memory item.
type ProgressSaver struct {
	store    *queue.Store
	interval time.Duration
	last     time.Time
}

// NewProgressSaver builds a saver writing through the given store at most once
// per interval. A non-positive interval selects the default.
func NewProgressSaver(store *queue.Store, interval time.Duration) *ProgressSaver {
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	return &ProgressSaver{store: store, interval: interval}
}

// Save writes the item unless the previous write was too recent. Write errors
// are dropped; the stage boundary write surfaces persistent store problems.
func (p *ProgressSaver) Save(ctx context.Context, item *queue.Item) {
	if p == nil || p.store == nil || item == nil || item.ID == 0 {
		return
	}
	now := time.Now()
	if now.Sub(p.last) < p.interval {
		return
	}
	p.last = now
	_ = p.store.Update(ctx, item)
}
