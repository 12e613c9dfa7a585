package watch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"clipshift/internal/config"
	"clipshift/internal/logging"
	"clipshift/internal/notifications"
	"clipshift/internal/queue"
	"clipshift/internal/services"
	"clipshift/internal/services/ytdlp"
)

// Poller watches one channel and feeds new matching uploads into the queue.
type Poller struct {
	cfg       *config.Config
	store     *queue.Store
	fetcher   ytdlp.Fetcher
	notifier  notifications.Service
	logger    *slog.Logger
	statePath string

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	st       *state
	lastErr  error
	lastPoll time.Time
}

// Status is a snapshot of the poller for the status surface.
type Status struct {
	Running  bool
	Handle   string
	LastPoll time.Time
	Seen     int
	LastErr  string
}

// NewPoller constructs the discovery poller. State is loaded lazily on the
// first cycle so a corrupt state file surfaces as a poll error, not a
// constructor failure.
func NewPoller(cfg *config.Config, store *queue.Store, fetcher ytdlp.Fetcher, notifier notifications.Service, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Poller{
		cfg:       cfg,
		store:     store,
		fetcher:   fetcher,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "watch"),
		statePath: cfg.WatchStatePath(),
	}
}

// Start begins periodic polling. It is a no-op when already running and an
// error when no channel handle is configured.
func (p *Poller) Start(ctx context.Context) error {
	if strings.TrimSpace(p.cfg.Watch.Handle) == "" {
		return services.Wrap(services.ErrConfiguration, "watch", "start", "no channel handle configured", nil)
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(runCtx)
	return nil
}

// Stop halts polling promptly. In-flight metadata probes finish first.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Status returns a snapshot for the status surface.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := Status{
		Running:  p.running,
		Handle:   p.cfg.Watch.Handle,
		LastPoll: p.lastPoll,
	}
	if p.st != nil {
		status.Seen = len(p.st.Seen)
	}
	if p.lastErr != nil {
		status.LastErr = p.lastErr.Error()
	}
	return status
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	interval := time.Duration(p.cfg.Watch.PollInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	for {
		if _, err := p.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("poll cycle failed", logging.Error(err))
		}
		if !p.sleep(ctx, interval) {
			return
		}
	}
}

// sleep waits in one-second increments so Stop takes effect promptly even
// with long poll intervals. It returns false when the context ended.
func (p *Poller) sleep(ctx context.Context, total time.Duration) bool {
	deadline := time.Now().Add(total)
	for time.Now().Before(deadline) {
		step := time.Until(deadline)
		if step > time.Second {
			step = time.Second
		}
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
	return ctx.Err() == nil
}

// Poll runs one discovery cycle and returns the number of items enqueued.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	st, err := p.ensureState()
	if err != nil {
		p.setLastError(err)
		return 0, err
	}

	handle := p.cfg.Watch.Handle
	videos, err := p.fetcher.ListChannel(ctx, handle)
	if err != nil {
		err = services.Wrap(services.ErrFetch, "watch", "list channel", "Channel listing failed", err)
		p.setLastError(err)
		return 0, err
	}

	quota := p.cfg.Watch.PerCycleQuota
	enqueued := 0
	for _, video := range videos {
		if ctx.Err() != nil {
			return enqueued, ctx.Err()
		}
		if quota > 0 && enqueued >= quota {
			break
		}
		if _, examined := st.Seen[video.ID]; examined {
			continue
		}

		info, err := p.fetcher.Metadata(ctx, video.URL)
		if err != nil {
			// Left unseen so the next cycle retries the probe.
			p.logger.Warn("metadata probe failed",
				logging.String(logging.FieldSourceURL, video.URL),
				logging.Error(err))
			continue
		}

		st.Seen[video.ID] = time.Now().UTC()
		if !p.matches(info) {
			p.persistState(st)
			continue
		}

		if existing, err := p.store.FindBySourceURL(ctx, info.WebpageURL); err == nil && existing != nil {
			p.persistState(st)
			continue
		}

		item, err := p.store.NewItem(ctx, queue.NewItemParams{
			SourceURL: info.WebpageURL,
			Metadata: queue.Metadata{
				Title:       info.Title,
				Description: info.Description,
				Tags:        info.Tags,
			},
		})
		if err != nil {
			p.logger.Warn("failed to enqueue discovered video",
				logging.String(logging.FieldSourceURL, info.WebpageURL),
				logging.Error(err))
			delete(st.Seen, video.ID)
			continue
		}
		p.persistState(st)
		enqueued++

		p.logger.Info("discovered new video",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldSourceURL, info.WebpageURL),
			logging.String("title", info.Title))
		p.notify(ctx, info)
	}

	now := time.Now().UTC()
	st.LastPoll = now
	p.persistState(st)

	p.mu.Lock()
	p.lastPoll = now
	p.lastErr = nil
	p.mu.Unlock()
	return enqueued, nil
}

// matches applies keyword and duration filters. Exclusions win over
// inclusions, and both scan the title and description case-insensitively.
func (p *Poller) matches(info ytdlp.VideoInfo) bool {
	haystack := strings.ToLower(info.Title + "\n" + info.Description)

	for _, keyword := range p.cfg.Watch.ExcludeKeywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(haystack, keyword) {
			return false
		}
	}

	if len(p.cfg.Watch.IncludeKeywords) > 0 {
		included := false
		for _, keyword := range p.cfg.Watch.IncludeKeywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword != "" && strings.Contains(haystack, keyword) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	duration := info.DurationSeconds
	if min := p.cfg.Watch.MinDuration; min > 0 && duration < float64(min) {
		return false
	}
	if max := p.cfg.Watch.MaxDuration; max > 0 && duration > float64(max) {
		return false
	}
	return true
}

func (p *Poller) ensureState() (*state, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st != nil {
		return p.st, nil
	}
	st, err := loadState(p.statePath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "watch", "load state", "Watch state file unreadable", err)
	}
	p.st = st
	return st, nil
}

func (p *Poller) persistState(st *state) {
	if err := saveState(p.statePath, st); err != nil {
		p.logger.Warn("failed to persist watch state", logging.Error(err))
	}
}

func (p *Poller) setLastError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

func (p *Poller) notify(ctx context.Context, info ytdlp.VideoInfo) {
	err := p.notifier.Publish(ctx, notifications.EventDiscoveryFound, notifications.Payload{
		"title":   info.Title,
		"channel": p.cfg.Watch.Handle,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Debug("discovery notification failed", logging.Error(err))
	}
}
