package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"clipshift/internal/config"
	"clipshift/internal/logging"
	"clipshift/internal/media/ffprobe"
	"clipshift/internal/queue"
	"clipshift/internal/services"
	"clipshift/internal/services/ytdlp"
	"clipshift/internal/stage"
)

// Prober inspects media files. Matches ffprobe.Inspect.
type Prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Fetcher is the stage handler that downloads an item's source video.
type Fetcher struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	client   ytdlp.Fetcher
	probe    Prober
	progress *stage.ProgressSaver
}

// NewFetcher constructs the fetch handler using default dependencies.
func NewFetcher(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Fetcher {
	var opts []ytdlp.Option
	if cfg.Fetch.Proxy != "" {
		opts = append(opts, ytdlp.WithProxy(cfg.Fetch.Proxy))
	}
	client := ytdlp.New(cfg.Tools.Ytdlp, cfg.Fetch.TimeoutSeconds, opts...)
	return NewFetcherWithDependencies(cfg, store, logger, client, ffprobe.Inspect)
}

// NewFetcherWithDependencies allows injecting all collaborators (used in tests).
func NewFetcherWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, client ytdlp.Fetcher, probe Prober) *Fetcher {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = logging.NewComponentLogger(stageLogger, "fetch")
	}
	return &Fetcher{
		store:    store,
		cfg:      cfg,
		logger:   stageLogger,
		client:   client,
		probe:    probe,
		progress: stage.NewProgressSaver(store, 0),
	}
}

func (f *Fetcher) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, f.logger)
	if strings.TrimSpace(item.SourceURL) == "" {
		return services.Wrap(services.ErrValidation, "fetch", "prepare", "item has no source URL", nil)
	}
	item.DownloadPercent = 0
	item.ProgressMessage = "Starting download"
	item.ErrorMessage = ""
	logger.Info("starting fetch", logging.String(logging.FieldSourceURL, item.SourceURL))
	return nil
}

func (f *Fetcher) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, f.logger)

	destDir := filepath.Join(f.cfg.Paths.WorkDir, fmt.Sprintf("item-%d", item.ID), "source")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "fetch", "ensure work dir",
			"Failed to create work directory; set work_dir to a writable location", err)
	}

	path, err := f.client.Download(ctx, item.SourceURL, destDir, func(update ytdlp.ProgressUpdate) {
		item.DownloadPercent = update.Percent
		item.ProgressMessage = update.Message
		f.progress.Save(ctx, item)
	})
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTransient, "fetch", "download", "Download interrupted", ctx.Err())
		}
		return services.Wrap(services.ErrFetch, "fetch", "download",
			"Source download failed; check the URL and network connectivity", err)
	}

	item.SourceFile = path
	f.fillMetadata(ctx, item, logger)
	f.probeSource(ctx, item, logger)

	item.DownloadPercent = 100
	item.ProgressMessage = "Source video downloaded"
	logger.Info("fetch completed", logging.String("source_file", path))
	return nil
}

func (f *Fetcher) HealthCheck(ctx context.Context) stage.Health {
	binary := f.cfg.Tools.Ytdlp
	if binary == "" {
		binary = "yt-dlp"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy("fetch", fmt.Sprintf("yt-dlp binary %q not found", binary))
	}
	return stage.Healthy("fetch")
}

// fillMetadata backfills title, description, and tags from the source when
// the enqueue left them blank. Operator-provided values always win.
func (f *Fetcher) fillMetadata(ctx context.Context, item *queue.Item, logger *slog.Logger) {
	if item.Metadata.Title != "" && item.Metadata.Description != "" {
		return
	}
	info, err := f.client.Metadata(ctx, item.SourceURL)
	if err != nil {
		logger.Warn("light metadata fetch failed", logging.Error(err))
		return
	}
	if item.Metadata.Title == "" {
		item.Metadata.Title = info.Title
	}
	if item.Metadata.Description == "" {
		item.Metadata.Description = info.Description
	}
	if len(item.Metadata.Tags) == 0 && len(info.Tags) > 0 {
		item.Metadata.Tags = queue.NormalizeTags(info.Tags)
	}
	if item.DurationSeconds == 0 {
		item.DurationSeconds = info.DurationSeconds
	}
}

func (f *Fetcher) probeSource(ctx context.Context, item *queue.Item, logger *slog.Logger) {
	if f.probe == nil || item.SourceFile == "" {
		return
	}
	result, err := f.probe(ctx, f.cfg.Tools.FFprobe, item.SourceFile)
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

var _ stage.Handler = (*Fetcher)(nil)
