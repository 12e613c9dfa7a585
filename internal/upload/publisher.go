package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"clipshift/internal/config"
	"clipshift/internal/fileutil"
	"clipshift/internal/ledger"
	"clipshift/internal/logging"
	"clipshift/internal/queue"
	"clipshift/internal/services"
	"clipshift/internal/stage"
)

// Transport is the engine behaviour the publisher depends on.
type Transport interface {
	Upload(ctx context.Context, req Request, progress ProgressFunc) (string, error)
	PostPublish(ctx context.Context, profile, videoID string, playlists []string) []error
}

// PrimaryDestination is the destination every queue item targets by default.
const PrimaryDestination = "youtube"

// Publisher is the stage handler that checks the dedup ledger and sends the
// prepared file to every configured destination. Each destination routes to
// its own transport; the primary one is wired at construction and secondary
// publishers register under their destination name.
type Publisher struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	engines  map[string]Transport
	ledger   *ledger.Ledger
	progress *stage.ProgressSaver
}

// NewPublisher constructs the publish handler with the given transport serving
// the primary destination.
func NewPublisher(cfg *config.Config, store *queue.Store, logger *slog.Logger, engine Transport, published *ledger.Ledger) *Publisher {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = logging.NewComponentLogger(stageLogger, "publish")
	}
	return &Publisher{
		cfg:      cfg,
		store:    store,
		logger:   stageLogger,
		engines:  map[string]Transport{PrimaryDestination: engine},
		ledger:   published,
		progress: stage.NewProgressSaver(store, 0),
	}
}

// RegisterDestination wires a secondary publisher under its destination name.
// Registering an existing name replaces its transport.
func (p *Publisher) RegisterDestination(name string, transport Transport) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || transport == nil {
		return
	}
	p.engines[name] = transport
}

// SupportedDestinations returns the destination names with a wired publisher,
// sorted for stable error messages.
func (p *Publisher) SupportedDestinations() []string {
	names := make([]string, 0, len(p.engines))
	for name := range p.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Publisher) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, p.logger)

	uploadFile := item.UploadFile()
	if uploadFile == "" {
		return services.Wrap(services.ErrValidation, "publish", "prepare", "item has no file to upload", nil)
	}
	if _, err := os.Stat(uploadFile); err != nil {
		return services.Wrap(services.ErrValidation, "publish", "prepare", "upload file missing on disk", err)
	}

	hash, err := fileutil.HashFile(uploadFile)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publish", "hash", "Failed to hash upload file", err)
	}
	item.ContentHash = hash

	if p.ledger != nil {
		if entry, found := p.ledger.Lookup(hash); found {
			return services.Wrap(services.ErrDuplicate, "publish", "dedup check",
				fmt.Sprintf("Duplicate content: already published as video %s (%q) on %s",
					entry.VideoID, entry.Title, entry.PublishedAt.Format("2006-01-02")), nil)
		}
	}

	item.UploadPercent = 0
	item.ProgressMessage = "Starting upload"
	item.ErrorMessage = ""
	logger.Info("starting publish",
		logging.String("upload_file", uploadFile),
		logging.String("content_hash", hash))
	return nil
}

func (p *Publisher) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, p.logger)

	if IsShortForm(item.Width, item.Height, item.DurationSeconds, p.cfg.Upload.ShortFormMaxSeconds) {
		ApplyShortForm(&item.Metadata)
	}

	resource := BuildVideoResource(item.Metadata, p.cfg.Upload)
	profile := item.Transport.Profile
	if profile == "" {
		profile = p.cfg.Upload.DefaultProfile
	}

	destinations := item.Destinations
	if len(destinations) == 0 {
		destinations = []string{PrimaryDestination}
	}

	req := Request{
		FilePath:   item.UploadFile(),
		Resource:   resource,
		Profile:    profile,
		ChunkBytes: int64(item.Transport.ChunkSizeMB) * 1024 * 1024,
		MaxRetries: item.Transport.MaxRetries,
	}

	var failures []error
	succeeded := 0
	for _, destination := range destinations {
		destLogger := logger.With(logging.String(logging.FieldDestination, destination))

		if result, ok := item.ResultFor(destination); ok && result.VideoID != "" {
			destLogger.Info("destination already published, skipping", logging.String("video_id", result.VideoID))
			succeeded++
			continue
		}

		transport, ok := p.engines[strings.ToLower(strings.TrimSpace(destination))]
		if !ok {
			err := services.Wrap(services.ErrValidation, "publish", "route",
				fmt.Sprintf("no publisher configured for destination %q", destination), nil)
			destLogger.Warn("destination has no publisher", logging.Error(err))
			item.SetResult(queue.DestinationResult{Destination: destination, Error: err.Error()})
			failures = append(failures, err)
			continue
		}

		videoID, err := transport.Upload(ctx, req, func(percent float64, message string) {
			item.UploadPercent = percent
			item.ProgressMessage = message
			p.progress.Save(ctx, item)
		})
		if err != nil {
			destLogger.Warn("destination upload failed", logging.Error(err))
			item.SetResult(queue.DestinationResult{Destination: destination, Error: err.Error()})
			failures = append(failures, fmt.Errorf("%s: %w", destination, err))
			continue
		}

		succeeded++
		item.SetResult(queue.DestinationResult{Destination: destination, VideoID: videoID})
		destLogger.Info("destination upload completed", logging.String("video_id", videoID))

		if p.ledger != nil {
			if err := p.ledger.Record(ledger.Entry{
				ContentHash: item.ContentHash,
				Destination: destination,
				VideoID:     videoID,
				Title:       item.Metadata.Title,
				PublishedAt: time.Now().UTC(),
			}); err != nil {
				destLogger.Warn("failed to record published video", logging.Error(err))
			}
		}

		for _, err := range transport.PostPublish(ctx, profile, videoID, item.Metadata.Playlists) {
			destLogger.Warn("post-publish extra failed", logging.Error(err))
		}
	}

	if succeeded == 0 {
		err := errors.Join(failures...)
		if len(failures) == 1 {
			return failures[0]
		}
		return services.Wrap(services.ErrTransient, "publish", "upload", "Every destination upload failed", err)
	}

	item.UploadPercent = 100
	item.ProgressMessage = "Published"
	return nil
}

func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	if p.engines[PrimaryDestination] == nil {
		return stage.Unhealthy("publish", "upload engine not configured")
	}
	return stage.Healthy("publish")
}

var _ stage.Handler = (*Publisher)(nil)
