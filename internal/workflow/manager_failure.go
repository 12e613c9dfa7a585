package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"clipshift/internal/fileutil"
	"clipshift/internal/logging"
	"clipshift/internal/queue"
	"clipshift/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)

	kind := services.Classify(stageErr)
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = stageName + " failed"
	}
	item.SetFailed(message)

	// Failed items never resume mid-chain; a retry starts over from pending,
	// so their work files are dead weight either way.
	m.cleanupWorkFiles(logger, item)

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, stageName),
		logging.String("error_kind", string(kind)),
		logging.String(logging.FieldErrorHint, services.RecoveryHint(kind)),
		logging.Error(stageErr))

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastError(stageErr)
	m.setLastItem(item)
	m.notifyStageError(ctx, stageName, item, stageErr)
	m.maybeAutoPause(ctx)
	m.checkQueueCompletion(ctx)
}

// cleanupWorkFiles removes an item's scratch files once they can never be
// needed again.
func (m *Manager) cleanupWorkFiles(logger *slog.Logger, item *queue.Item) {
	if err := fileutil.RemoveWorkFiles(item.SourceFile, item.TransformedFile); err != nil {
		logger.Warn("failed to remove work files", logging.Error(err))
	}
}
