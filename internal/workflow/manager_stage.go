package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipshift/internal/logging"
	"clipshift/internal/queue"
	"clipshift/internal/services"
)

func (m *Manager) processItem(ctx context.Context, item *queue.Item) error {
	stg, ok := m.stagesByStatus[item.Status]
	if !ok {
		m.logger.Warn("no stage configured for status", logging.String("status", string(item.Status)))
		m.waitOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(services.WithStage(services.WithItemID(ctx, item.ID), stg.name), requestID)
	stageLogger := logging.WithContext(stageCtx, m.logger)

	if err := m.transitionToProcessing(stageCtx, stg, item); err != nil {
		stageLogger.Error("failed to transition item to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, item)
}

func (m *Manager) transitionToProcessing(ctx context.Context, stg pipelineStage, item *queue.Item) error {
	now := time.Now().UTC()
	item.Status = stg.processing
	item.ProgressMessage = fmt.Sprintf("%s started", deriveStageLabel(stg.processing))
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
	switch stg.processing {
	case queue.StatusDownloading:
		item.DownloadPercent = 0
	case queue.StatusTransforming:
		item.TransformPercent = 0
	case queue.StatusUploading:
		item.UploadPercent = 0
	}

	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastItem(item)
	m.markQueueActive()
	return nil
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, item *queue.Item) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldSourceURL, item.SourceURL),
		logging.String("processing_status", string(stg.processing)))

	if err := stg.handler.Prepare(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			stageLogger.Debug("stage preparation interrupted by shutdown")
			return context.Canceled
		}
		m.handleStageFailure(ctx, stg.name, item, err)
		return err
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, stg, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) || ctx.Err() != nil {
			stageLogger.Debug("stage interrupted by shutdown")
			return context.Canceled
		}
		m.handleStageFailure(ctx, stg.name, item, execErr)
		return execErr
	}

	if item.Status == stg.processing || item.Status == "" {
		item.Status = stg.done
	}
	item.LastHeartbeat = nil
	if item.Status == queue.StatusCompleted {
		message := strings.TrimSpace(item.ProgressMessage)
		if message == "" {
			message = "Published"
		}
		item.SetCompleted(message)
		m.cleanupWorkFiles(stageLogger, item)
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	m.setLastItem(item)

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)))

	if item.Status == queue.StatusCompleted {
		m.onItemCompleted(ctx, item)
	}
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, stg pipelineStage, item *queue.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.loop(hbCtx, &hbWG, item.ID)

	execErr := stg.handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}
