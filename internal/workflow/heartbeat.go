package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipshift/internal/logging"
	"clipshift/internal/queue"
)

// heartbeatMonitor stamps the in-flight item at a fixed interval so an
// interrupted daemon can tell live processing from abandoned work. Each tick
// also refreshes the caller's view of the item so progress persisted mid-stage
// reaches the status surface.
type heartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	refresh  func(context.Context, int64)
}

func newHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval time.Duration, refresh func(context.Context, int64)) *heartbeatMonitor {
	return &heartbeatMonitor{store: store, logger: logger, interval: interval, refresh: refresh}
}

func (h *heartbeatMonitor) loop(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, itemID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				h.logger.Warn("heartbeat update failed",
					logging.Int64(logging.FieldItemID, itemID),
					logging.Error(err))
				continue
			}
			if h.refresh != nil {
				h.refresh(ctx, itemID)
			}
		}
	}
}
