package transform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"clipshift/internal/config"
	"clipshift/internal/logging"
	"clipshift/internal/media/ffprobe"
	"clipshift/internal/queue"
	"clipshift/internal/services"
	"clipshift/internal/stage"
)

// BadgePassthrough marks items whose processing failed and were published
// from the original download.
const BadgePassthrough = "transform skipped"

// Prober inspects media files. Matches ffprobe.Inspect.
type Prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Transformer is the stage handler that prepares fetched videos for upload.
type Transformer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	runner   Runner
	probe    Prober
	progress *stage.ProgressSaver
}

// NewTransformer constructs the transform handler using default dependencies.
func NewTransformer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transformer {
	runner := NewFFmpeg(cfg.Tools.FFmpeg, 0)
	return NewTransformerWithDependencies(cfg, store, logger, runner, ffprobe.Inspect)
}

// NewTransformerWithDependencies allows injecting all collaborators (used in tests).
func NewTransformerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, runner Runner, probe Prober) *Transformer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = logging.NewComponentLogger(stageLogger, "transform")
	}
	return &Transformer{
		store:    store,
		cfg:      cfg,
		logger:   stageLogger,
		runner:   runner,
		probe:    probe,
		progress: stage.NewProgressSaver(store, 0),
	}
}

func (t *Transformer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	item.TransformPercent = 0
	item.ProgressMessage = "Preparing video"
	item.ErrorMessage = ""
	if item.SourceFile == "" {
		return services.Wrap(services.ErrValidation, "transform", "prepare", "item has no downloaded source file", nil)
	}
	logger.Info("starting transform",
		logging.String("source_file", item.SourceFile),
		logging.Bool("processing_requested", item.Transform.Requested()))
	return nil
}

func (t *Transformer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)

	workDir := filepath.Join(t.cfg.Paths.WorkDir, fmt.Sprintf("item-%d", item.ID))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "transform", "ensure work dir",
			"Failed to create work directory; set work_dir to a writable location", err)
	}

	t.probeSource(ctx, item, logger)
	outputPath := filepath.Join(workDir, "upload.mp4")

	progressCB := func(update ProgressUpdate) {
		item.TransformPercent = update.Percent
		item.ProgressMessage = update.Message
		t.progress.Save(ctx, item)
	}

	if item.Transform.Requested() {
		plan := BuildPlan(item.Transform, item.SourceFile, outputPath)
		if err := t.runner.Run(ctx, plan, t.trimmedDuration(item), progressCB); err != nil {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrTransient, "transform", "ffmpeg", "Transform interrupted", ctx.Err())
			}
			logger.Warn("requested processing failed, passing original through",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ffmpeg installation and transform options"))
			t.passthrough(item)
			return nil
		}
	} else {
		if err := t.runner.Run(ctx, RemuxPlan(item.SourceFile, outputPath), item.DurationSeconds, progressCB); err != nil {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrTransient, "transform", "ffmpeg remux", "Remux interrupted", ctx.Err())
			}
			logger.Warn("remux failed, retrying with full re-encode", logging.Error(err))
			if err := t.runner.Run(ctx, ReencodePlan(item.SourceFile, outputPath), item.DurationSeconds, progressCB); err != nil {
				if ctx.Err() != nil {
					return services.Wrap(services.ErrTransient, "transform", "ffmpeg re-encode", "Re-encode interrupted", ctx.Err())
				}
				logger.Warn("re-encode failed, passing original through", logging.Error(err))
				t.passthrough(item)
				return nil
			}
		}
	}

	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		logger.Warn("transform produced no output, passing original through")
		t.passthrough(item)
		return nil
	}

	item.TransformedFile = outputPath
	t.probeOutput(ctx, item)
	item.TransformPercent = 100
	item.ProgressMessage = "Video prepared"
	logger.Info("transform completed", logging.String("transformed_file", outputPath))
	return nil
}

func (t *Transformer) HealthCheck(ctx context.Context) stage.Health {
	binary := t.cfg.Tools.FFmpeg
	if binary == "" {
		binary = "ffmpeg"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy("transform", fmt.Sprintf("ffmpeg binary %q not found", binary))
	}
	return stage.Healthy("transform")
}

// passthrough keeps the original file as the upload candidate and records why.
func (t *Transformer) passthrough(item *queue.Item) {
	item.TransformedFile = ""
	item.AddBadge(BadgePassthrough)
	item.TransformPercent = 100
	item.ProgressMessage = "Processing failed; publishing original file"
}

func (t *Transformer) probeSource(ctx context.Context, item *queue.Item, logger *slog.Logger) {
	if t.probe == nil {
		return
	}
	result, err := t.probe(ctx, t.cfg.Tools.FFprobe, item.SourceFile)
	if err != nil {
		logger.Warn("source probe failed", logging.Error(err))
		return
	}
	if duration := result.DurationSeconds(); duration > 0 {
		item.DurationSeconds = duration
	}
	if width, height := result.Dimensions(); width > 0 && height > 0 {
		item.Width = width
		item.Height = height
	}
}

func (t *Transformer) probeOutput(ctx context.Context, item *queue.Item) {
	if t.probe == nil || item.TransformedFile == "" {
		return
	}
	result, err := t.probe(ctx, t.cfg.Tools.FFprobe, item.TransformedFile)
	if err != nil {
		return
	}
	if duration := result.DurationSeconds(); duration > 0 {
		item.DurationSeconds = duration
	}
	if width, height := result.Dimensions(); width > 0 && height > 0 {
		item.Width = width
		item.Height = height
	}
}

// trimmedDuration estimates the output duration when trim offsets apply so
// progress percentages stay meaningful.
func (t *Transformer) trimmedDuration(item *queue.Item) float64 {
	duration := item.DurationSeconds
	opts := item.Transform
	if opts.TrimEnd > 0 && (duration <= 0 || opts.TrimEnd < duration) {
		duration = opts.TrimEnd
	}
	if opts.TrimStart > 0 && duration > opts.TrimStart {
		duration -= opts.TrimStart
	}
	return duration
}

var _ stage.Handler = (*Transformer)(nil)
