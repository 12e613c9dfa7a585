package daemon

import (
	"context"

	"clipshift/internal/api"
)

// WatchStart launches the discovery poller.
func (d *Daemon) WatchStart(ctx context.Context) error {
	return d.poller.Start(ctx)
}

// WatchStop halts the discovery poller.
func (d *Daemon) WatchStop() {
	d.poller.Stop()
}

// WatchStatus reports the discovery poller snapshot.
func (d *Daemon) WatchStatus() api.WatchStatus {
	return api.FromWatchStatus(d.poller.Status())
}

// WatchPoll runs one discovery cycle immediately and returns the number of
// items it enqueued.
func (d *Daemon) WatchPoll(ctx context.Context) (int, error) {
	return d.poller.Poll(ctx)
}
