package workflow

import (
	"context"
	"errors"
	"time"

	"clipshift/internal/logging"
)

// Start begins background processing. Calling Start on a running manager is a
// no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	for status, stg := range m.stagesByStatus {
		if stg.handler == nil {
			m.mu.Unlock()
			return errors.New("workflow stage handler missing for status " + string(status))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		m.logger.Warn("failed to reset interrupted items; stuck items may remain",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"))
	} else if reset > 0 {
		m.logger.Info("reset interrupted items to resting status", logging.Int64("count", reset))
	}

	go m.run(runCtx)
	return nil
}

// Stop cancels the in-flight stage and waits for the worker to exit. Calling
// Stop on an idle manager is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Pause stops the worker from picking up new items. The in-flight item, if
// any, runs to completion. Resuming resets the auto-pause completion counter.
func (m *Manager) Pause(paused bool) {
	m.mu.Lock()
	changed := m.paused != paused
	m.paused = paused
	if !paused {
		m.processedSinceResume = 0
	}
	m.mu.Unlock()

	if changed {
		if paused {
			m.logger.Info("queue processing paused")
		} else {
			m.logger.Info("queue processing resumed")
		}
	}
}

// Paused reports whether the worker is currently skipping pickup.
func (m *Manager) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// SetAutoPause reconfigures the pause-after-N-completions behavior and resets
// the completion counter.
func (m *Manager) SetAutoPause(enabled bool, after int) {
	m.mu.Lock()
	m.autoPauseEnabled = enabled
	m.autoPauseAfter = after
	m.processedSinceResume = 0
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if m.Paused() {
			m.waitOrShutdown(ctx)
			continue
		}

		item, err := m.store.NextForProcessing(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.setLastError(err)
			m.logger.Error("failed to fetch next queue item",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"))
			m.waitOrShutdown(ctx)
			continue
		}
		if item == nil {
			m.waitOrShutdown(ctx)
			continue
		}

		if err := m.processItem(ctx, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) waitOrShutdown(ctx context.Context) {
	timer := time.NewTimer(m.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
