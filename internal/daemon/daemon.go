package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipshift/internal/api"
	"clipshift/internal/config"
	"clipshift/internal/fetch"
	"clipshift/internal/ledger"
	"clipshift/internal/logging"
	"clipshift/internal/notifications"
	"clipshift/internal/profiles"
	"clipshift/internal/queue"
	"clipshift/internal/services"
	"clipshift/internal/services/tube"
	"clipshift/internal/services/ytdlp"
	"clipshift/internal/transform"
	"clipshift/internal/upload"
	"clipshift/internal/watch"
	"clipshift/internal/workflow"
)

// ErrAlreadyRunning is returned when another daemon holds the instance lock.
var ErrAlreadyRunning = errors.New("daemon already running for this data directory")

// Daemon wires the pipeline components together and mediates every operation
// the control socket exposes.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	version  string
	fetchSvc ytdlp.Fetcher

	store     *queue.Store
	ledger    *ledger.Ledger
	profiles  *profiles.Store
	notifier  notifications.Service
	manager   *workflow.Manager
	poller    *watch.Poller
	publisher *upload.Publisher

	lock      *flock.Flock
	running   atomic.Bool
	startedAt time.Time
}

// New constructs a daemon with the full pipeline wired from configuration.
func New(cfg *config.Config, logger *slog.Logger, version string) (*Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	published := ledger.New(cfg.LedgerPath(), logger)
	profileStore := profiles.NewStore(cfg.ProfilesPath(), logger)
	notifier := notifications.NewService(cfg)

	ytdlpClient := newYtdlpClient(cfg)
	creds := tube.NewFileCredentialSource(cfg.CredentialsPath(), cfg.Upload.TokenURL,
		cfg.Upload.ClientID, cfg.Upload.ClientSecret, logger)
	tubeClient := tube.NewClient(cfg.Upload.APIBaseURL, cfg.Upload.UploadBaseURL, cfg.Upload.TimeoutSeconds)
	engine := upload.NewEngine(cfg.Upload, tubeClient, creds, logger)

	publisher := upload.NewPublisher(cfg, store, logger, engine, published)
	stages := workflow.Stages{
		Fetch:     fetch.NewFetcher(cfg, store, logger),
		Transform: transform.NewTransformer(cfg, store, logger),
		Publish:   publisher,
	}
	manager := workflow.NewManager(cfg, store, logger, notifier, stages)
	poller := watch.NewPoller(cfg, store, ytdlpClient, notifier, logger)

	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		version:   version,
		fetchSvc:  ytdlpClient,
		store:     store,
		ledger:    published,
		profiles:  profileStore,
		notifier:  notifier,
		manager:   manager,
		poller:    poller,
		publisher: publisher,
		lock:      flock.New(cfg.LockPath()),
	}, nil
}

func newYtdlpClient(cfg *config.Config) *ytdlp.Client {
	binary := cfg.Tools.Ytdlp
	if binary == "" {
		binary = "yt-dlp"
	}
	var opts []ytdlp.Option
	if cfg.Fetch.Proxy != "" {
		opts = append(opts, ytdlp.WithProxy(cfg.Fetch.Proxy))
	}
	return ytdlp.New(binary, cfg.Fetch.TimeoutSeconds, opts...)
}

// Start acquires the single-instance lock, records the pid, and launches the
// worker. The watch poller starts only when discovery is enabled.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return nil
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}

	if err := d.writePidFile(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	if err := d.manager.Start(ctx); err != nil {
		d.releaseInstance()
		return err
	}

	if d.cfg.Watch.Enabled {
		if err := d.poller.Start(ctx); err != nil {
			d.logger.Warn("watch poller not started", logging.Error(err))
		}
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("version", d.version),
		logging.String("queue_db", d.cfg.QueueDatabasePath()))
	return nil
}

// Stop halts the poller and the worker. In-flight stage work is cancelled and
// resumes from its resting status on the next start.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.poller.Stop()
	d.manager.Stop()
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon if needed and releases every held resource.
func (d *Daemon) Close() error {
	d.Stop()
	d.releaseInstance()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has completed and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

func (d *Daemon) writePidFile() error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(d.cfg.PidFilePath(), []byte(pid+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

func (d *Daemon) releaseInstance() {
	if err := os.Remove(d.cfg.PidFilePath()); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
}

// Status assembles the full daemon snapshot for the status surface.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	return api.DaemonStatus{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Version:       d.version,
		StartedAt:     api.FormatTime(d.startedAt),
		SocketPath:    d.cfg.Paths.SocketPath,
		QueueDatabase: d.cfg.QueueDatabasePath(),
		LedgerEntries: d.ledger.Count(),
		Workflow:      api.FromStatusSummary(d.manager.Status(ctx)),
		Watch:         api.FromWatchStatus(d.poller.Status()),
	}
}

// PurgeTemp removes every per-item scratch directory under the work dir.
func (d *Daemon) PurgeTemp() (int, error) {
	entries, err := os.ReadDir(d.cfg.Paths.WorkDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read work dir: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		path := filepath.Join(d.cfg.Paths.WorkDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("remove %q: %w", path, err)
		}
		removed++
	}
	d.logger.Info("purged work directory", logging.Int("removed", removed))
	return removed, nil
}

// TestNotification pushes a test event through the configured transport.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.notifier.Publish(ctx, notifications.EventTest, nil)
}

// Prefill probes source metadata so the CLI can seed title and description
// before enqueueing.
func (d *Daemon) Prefill(ctx context.Context, sourceURL string) (ytdlp.VideoInfo, error) {
	info, err := d.fetchSvc.Metadata(ctx, sourceURL)
	if err != nil {
		return ytdlp.VideoInfo{}, services.Wrap(services.ErrFetch, "daemon", "prefill",
			"Metadata probe failed", err)
	}
	return info, nil
}
