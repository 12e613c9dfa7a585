package daemon

import (
	"context"
	"strings"

	"clipshift/internal/api"
	"clipshift/internal/logging"
	"clipshift/internal/queue"
	"clipshift/internal/services"
)

// EnqueueParams carries one enqueue request from the control surface.
type EnqueueParams struct {
	SourceURL    string
	Metadata     queue.Metadata
	Transform    queue.TransformOptions
	Transport    queue.TransportOptions
	Destinations []string
	Profile      string
	Prefill      bool
}

// Enqueue applies the named profile, optionally prefills metadata from the
// source, and appends the item to the queue.
func (d *Daemon) Enqueue(ctx context.Context, params EnqueueParams) (api.QueueItem, error) {
	destinations, err := d.normalizeDestinations(params.Destinations)
	if err != nil {
		return api.QueueItem{}, err
	}

	itemParams := queue.NewItemParams{
		SourceURL:    params.SourceURL,
		Metadata:     params.Metadata,
		Transform:    params.Transform,
		Transport:    params.Transport,
		Destinations: destinations,
	}

	profile := strings.TrimSpace(params.Profile)
	if profile == "" {
		profile = d.cfg.Upload.DefaultProfile
	}
	if profile != "" {
		if err := d.profiles.Apply(profile, &itemParams); err != nil {
			return api.QueueItem{}, err
		}
	}

	if params.Prefill {
		if info, err := d.Prefill(ctx, itemParams.SourceURL); err == nil {
			if itemParams.Metadata.Title == "" {
				itemParams.Metadata.Title = info.Title
			}
			if itemParams.Metadata.Description == "" {
				itemParams.Metadata.Description = info.Description
			}
			if len(itemParams.Metadata.Tags) == 0 {
				itemParams.Metadata.Tags = info.Tags
			}
		} else {
			d.logger.Warn("metadata prefill failed",
				logging.String(logging.FieldSourceURL, itemParams.SourceURL),
				logging.Error(err))
		}
	}

	item, err := d.store.NewItem(ctx, itemParams)
	if err != nil {
		return api.QueueItem{}, err
	}
	return api.FromQueueItem(item), nil
}

// normalizeDestinations lowercases the requested destinations and rejects any
// without a wired publisher, so misrouted names fail at enqueue instead of
// after a download.
func (d *Daemon) normalizeDestinations(requested []string) ([]string, error) {
	supported := d.publisher.SupportedDestinations()
	normalized := make([]string, 0, len(requested))
	for _, name := range requested {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		known := false
		for _, candidate := range supported {
			if name == candidate {
				known = true
				break
			}
		}
		if !known {
			return nil, services.Wrap(services.ErrValidation, "daemon", "enqueue",
				"unknown destination "+name+" (supported: "+strings.Join(supported, ", ")+")", nil)
		}
		normalized = append(normalized, name)
	}
	return normalized, nil
}

// ImportResult summarizes a bulk enqueue.
type ImportResult struct {
	Enqueued int
	Skipped  int
	Errors   []string
}

// Import enqueues a batch of source URLs, skipping URLs already in the queue.
func (d *Daemon) Import(ctx context.Context, urls []string, params EnqueueParams) (ImportResult, error) {
	var result ImportResult
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" || strings.HasPrefix(url, "#") {
			continue
		}
		if existing, err := d.store.FindBySourceURL(ctx, url); err == nil && existing != nil {
			result.Skipped++
			continue
		}
		perItem := params
		perItem.SourceURL = url
		if _, err := d.Enqueue(ctx, perItem); err != nil {
			result.Errors = append(result.Errors, url+": "+err.Error())
			continue
		}
		result.Enqueued++
	}
	return result, nil
}

// ListItems returns the queue, optionally filtered by status names.
func (d *Daemon) ListItems(ctx context.Context, statusNames ...string) ([]api.QueueItem, error) {
	statuses := make([]queue.Status, 0, len(statusNames))
	for _, name := range statusNames {
		status, ok := queue.ParseStatus(name)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "daemon", "list",
				"unknown status "+name, nil)
		}
		statuses = append(statuses, status)
	}
	items, err := d.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return api.FromQueueItems(items), nil
}

// GetItem returns one item by id, or nil when it does not exist.
func (d *Daemon) GetItem(ctx context.Context, id int64) (*api.QueueItem, error) {
	item, err := d.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	view := api.FromQueueItem(item)
	return &view, nil
}

// MoveItem swaps an item with its neighbor in the given direction.
func (d *Daemon) MoveItem(ctx context.Context, id int64, direction string) (bool, error) {
	switch queue.MoveDirection(direction) {
	case queue.MoveUp, queue.MoveDown:
	default:
		return false, services.Wrap(services.ErrValidation, "daemon", "move",
			"direction must be up or down", nil)
	}
	return d.store.Move(ctx, id, queue.MoveDirection(direction))
}

// RemoveItem deletes one item from the queue.
func (d *Daemon) RemoveItem(ctx context.Context, id int64) (bool, error) {
	return d.store.Remove(ctx, id)
}

// ClearQueue removes items: all of them, or only the completed ones.
func (d *Daemon) ClearQueue(ctx context.Context, completedOnly bool) (int64, error) {
	if completedOnly {
		return d.store.ClearCompleted(ctx)
	}
	return d.store.Clear(ctx)
}

// RetryFailed re-queues failed items, all of them when no ids are given.
func (d *Daemon) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// ResetStuck returns in-flight items to their resting statuses.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	return d.store.ResetStuckProcessing(ctx)
}

// QueueStats returns per-status queue counts with zeroes filled in.
func (d *Daemon) QueueStats(ctx context.Context) (map[string]int, error) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return api.MergeQueueStats(stats), nil
}

// Pause gates worker pickup without interrupting the in-flight item.
func (d *Daemon) Pause() {
	d.manager.Pause(true)
}

// Resume re-enables worker pickup and resets the auto-pause counter.
func (d *Daemon) Resume() {
	d.manager.Pause(false)
}

// SetAutoPause reconfigures the pause-after-N-completions behaviour.
func (d *Daemon) SetAutoPause(enabled bool, after int) {
	d.manager.SetAutoPause(enabled, after)
}
