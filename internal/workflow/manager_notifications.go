package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clipshift/internal/logging"
	"clipshift/internal/notifications"
	"clipshift/internal/queue"
)

// markQueueActive records the start of a processing burst so the drain
// notification can report its duration.
func (m *Manager) markQueueActive() {
	m.mu.Lock()
	if !m.queueActive {
		m.queueActive = true
		m.queueStart = time.Now()
	}
	m.mu.Unlock()
}

func (m *Manager) onItemCompleted(ctx context.Context, item *queue.Item) {
	videoID := ""
	for _, result := range item.Results {
		if result.VideoID != "" {
			videoID = result.VideoID
			break
		}
	}
	m.publish(ctx, notifications.EventUploadCompleted, notifications.Payload{
		"title":    item.Metadata.Title,
		"video_id": videoID,
	})

	m.maybeAutoPause(ctx)
	m.checkQueueCompletion(ctx)
}

// maybeAutoPause counts every item that leaves the pipeline, completed or
// failed, and pauses pickup once the configured count is reached.
func (m *Manager) maybeAutoPause(ctx context.Context) {
	m.mu.Lock()
	if !m.autoPauseEnabled || m.autoPauseAfter <= 0 || m.paused {
		m.mu.Unlock()
		return
	}
	m.processedSinceResume++
	if m.processedSinceResume < m.autoPauseAfter {
		m.mu.Unlock()
		return
	}
	count := m.processedSinceResume
	m.processedSinceResume = 0
	m.paused = true
	m.mu.Unlock()

	m.logger.Info("auto-pausing after processed items", logging.Int("count", count))
	m.publish(ctx, notifications.EventAutoPaused, notifications.Payload{"count": count})
}

func (m *Manager) notifyStageError(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	if stageErr == nil {
		return
	}
	m.publish(ctx, notifications.EventError, notifications.Payload{
		"error":   stageErr,
		"context": fmt.Sprintf("%s (item #%d)", stageName, item.ID),
	})
}

func (m *Manager) checkQueueCompletion(ctx context.Context) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Warn("queue stats unavailable, skipping drain notification", logging.Error(err))
		}
		return
	}

	active := 0
	for status, count := range stats {
		if queue.IsTerminal(status) {
			continue
		}
		active += count
	}
	if active > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	m.publish(ctx, notifications.EventQueueCompleted, notifications.Payload{
		"processed": stats[queue.StatusCompleted],
		"failed":    stats[queue.StatusFailed],
		"duration":  duration,
	})
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("shutting down, notification skipped", logging.String("event", string(event)))
			return
		}
		m.logger.Debug("notification failed",
			logging.String("event", string(event)),
			logging.Error(err))
	}
}
