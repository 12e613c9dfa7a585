package workflow

import (
	"context"

	"clipshift/internal/logging"
	"clipshift/internal/queue"
	"clipshift/internal/stage"
)

// StatusSummary represents lightweight worker diagnostics.
type StatusSummary struct {
	Running          bool
	Paused           bool
	AutoPauseEnabled bool
	AutoPauseAfter   int
	LastError        string
	LastItem         *queue.Item
	QueueStats       map[queue.Status]int
	StageHealth      map[string]stage.Health
}

// Status returns the latest worker information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:          m.running,
		Paused:           m.paused,
		AutoPauseEnabled: m.autoPauseEnabled,
		AutoPauseAfter:   m.autoPauseAfter,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastItem != nil {
		item := *m.lastItem
		summary.LastItem = &item
	}
	stages := make([]pipelineStage, 0, len(m.stagesByStatus))
	for _, stg := range m.stagesByStatus {
		stages = append(stages, stg)
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats

	health := make(map[string]stage.Health, len(stages))
	for _, stg := range stages {
		if stg.handler == nil {
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}
	summary.StageHealth = health
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		copied := *item
		m.lastItem = &copied
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}
