package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipshift/internal/config"
	"clipshift/internal/logging"
	"clipshift/internal/notifications"
	"clipshift/internal/queue"
	"clipshift/internal/stage"
)

// Stages bundles the three pipeline handlers in execution order.
type Stages struct {
	Fetch     stage.Handler
	Transform stage.Handler
	Publish   stage.Handler
}

// pipelineStage binds a handler to its status transitions.
type pipelineStage struct {
	name       string
	handler    stage.Handler
	processing queue.Status
	done       queue.Status
}

// Manager runs the single-lane queue worker.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	heartbeat    *heartbeatMonitor
	pollInterval time.Duration

	stagesByStatus map[queue.Status]pipelineStage

	mu       sync.RWMutex
	running  bool
	paused   bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item

	autoPauseEnabled     bool
	autoPauseAfter       int
	processedSinceResume int

	queueActive bool
	queueStart  time.Time
}

// NewManager constructs the queue worker. A nil logger or notifier falls back
// to no-op implementations.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, stages Stages) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	pollInterval := time.Duration(cfg.Queue.PollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	heartbeatInterval := time.Duration(cfg.Queue.HeartbeatInterval) * time.Second
	if heartbeatInterval <= 0 {
		heartbeatInterval = 15 * time.Second
	}

	m := &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: pollInterval,
		stagesByStatus: map[queue.Status]pipelineStage{
			queue.StatusPending: {
				name:       "fetch",
				handler:    stages.Fetch,
				processing: queue.StatusDownloading,
				done:       queue.StatusDownloaded,
			},
			queue.StatusDownloaded: {
				name:       "transform",
				handler:    stages.Transform,
				processing: queue.StatusTransforming,
				done:       queue.StatusTransformed,
			},
			queue.StatusTransformed: {
				name:       "publish",
				handler:    stages.Publish,
				processing: queue.StatusUploading,
				done:       queue.StatusCompleted,
			},
		},
		autoPauseEnabled: cfg.Queue.AutoPauseEnabled,
		autoPauseAfter:   cfg.Queue.AutoPauseAfter,
	}
	m.heartbeat = newHeartbeatMonitor(store, logger, heartbeatInterval, m.refreshLastItem)
	return m
}

// refreshLastItem replaces the status snapshot's item with the persisted row.
func (m *Manager) refreshLastItem(ctx context.Context, id int64) {
	item, err := m.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return
	}
	m.setLastItem(item)
}

func deriveStageLabel(status queue.Status) string {
	switch status {
	case queue.StatusDownloading:
		return "Download"
	case queue.StatusTransforming:
		return "Transform"
	case queue.StatusUploading:
		return "Upload"
	case queue.StatusCompleted:
		return "Completed"
	default:
		return string(status)
	}
}
