package ipc

import (
	"fmt"
	"net/rpc"
	"net/rpc/jsonrpc"

	"clipshift/internal/api"
	"clipshift/internal/profiles"
)

// Client is the typed JSON-RPC client the CLI uses to talk to the daemon.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the daemon socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := jsonrpc.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon at %s: %w", socketPath, err)
	}
	return &Client{rpc: conn}, nil
}

// Close releases the socket connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) call(method string, args, reply any) error {
	return c.rpc.Call(ServiceName+"."+method, args, reply)
}

// Status fetches the full daemon snapshot.
func (c *Client) Status() (api.DaemonStatus, error) {
	var resp StatusResponse
	err := c.call("Status", Empty{}, &resp)
	return resp.Status, err
}

// QueueList fetches the queue, optionally filtered by status names.
func (c *Client) QueueList(statuses ...string) ([]api.QueueItem, error) {
	var resp QueueListResponse
	err := c.call("QueueList", QueueListRequest{Statuses: statuses}, &resp)
	return resp.Items, err
}

// QueueGet fetches one item; a nil item means it does not exist.
func (c *Client) QueueGet(id int64) (*api.QueueItem, error) {
	var resp QueueGetResponse
	err := c.call("QueueGet", QueueGetRequest{ID: id}, &resp)
	return resp.Item, err
}

// QueueAdd enqueues one source URL.
func (c *Client) QueueAdd(req QueueAddRequest) (api.QueueItem, error) {
	var resp QueueAddResponse
	err := c.call("QueueAdd", req, &resp)
	return resp.Item, err
}

// QueueImport enqueues a batch of source URLs.
func (c *Client) QueueImport(req QueueImportRequest) (QueueImportResponse, error) {
	var resp QueueImportResponse
	err := c.call("QueueImport", req, &resp)
	return resp, err
}

// QueueMove swaps an item with its neighbor.
func (c *Client) QueueMove(id int64, direction string) (bool, error) {
	var resp QueueMoveResponse
	err := c.call("QueueMove", QueueMoveRequest{ID: id, Direction: direction}, &resp)
	return resp.Moved, err
}

// QueueRemove deletes one item.
func (c *Client) QueueRemove(id int64) (bool, error) {
	var resp QueueRemoveResponse
	err := c.call("QueueRemove", QueueRemoveRequest{ID: id}, &resp)
	return resp.Removed, err
}

// QueueClear deletes items, all or only completed ones.
func (c *Client) QueueClear(completedOnly bool) (int64, error) {
	var resp QueueClearResponse
	err := c.call("QueueClear", QueueClearRequest{CompletedOnly: completedOnly}, &resp)
	return resp.Removed, err
}

// QueueRetry re-queues failed items; no ids means all of them.
func (c *Client) QueueRetry(ids ...int64) (int64, error) {
	var resp QueueRetryResponse
	err := c.call("QueueRetry", QueueRetryRequest{IDs: ids}, &resp)
	return resp.Retried, err
}

// QueueReset returns in-flight items to their resting statuses.
func (c *Client) QueueReset() (int64, error) {
	var resp QueueResetResponse
	err := c.call("QueueReset", Empty{}, &resp)
	return resp.Reset, err
}

// QueueStats fetches per-status counts.
func (c *Client) QueueStats() (map[string]int, error) {
	var resp QueueStatsResponse
	err := c.call("QueueStats", Empty{}, &resp)
	return resp.Stats, err
}

// Pause gates worker pickup.
func (c *Client) Pause() error {
	return c.call("Pause", Empty{}, &Empty{})
}

// Resume re-enables worker pickup.
func (c *Client) Resume() error {
	return c.call("Resume", Empty{}, &Empty{})
}

// SetAutoPause reconfigures pause-after-N-completions.
func (c *Client) SetAutoPause(enabled bool, after int) error {
	return c.call("SetAutoPause", AutoPauseRequest{Enabled: enabled, After: after}, &Empty{})
}

// WatchStart launches the discovery poller.
func (c *Client) WatchStart() error {
	return c.call("WatchStart", Empty{}, &Empty{})
}

// WatchStop halts the discovery poller.
func (c *Client) WatchStop() error {
	return c.call("WatchStop", Empty{}, &Empty{})
}

// WatchStatus fetches the poller snapshot.
func (c *Client) WatchStatus() (api.WatchStatus, error) {
	var resp WatchStatusResponse
	err := c.call("WatchStatus", Empty{}, &resp)
	return resp.Status, err
}

// WatchPoll runs one discovery cycle immediately.
func (c *Client) WatchPoll() (int, error) {
	var resp WatchPollResponse
	err := c.call("WatchPoll", Empty{}, &resp)
	return resp.Enqueued, err
}

// ProfileList fetches stored profile summaries.
func (c *Client) ProfileList() ([]api.Profile, error) {
	var resp ProfileListResponse
	err := c.call("ProfileList", Empty{}, &resp)
	return resp.Profiles, err
}

// ProfileGet fetches one full profile.
func (c *Client) ProfileGet(name string) (profiles.Profile, error) {
	var resp ProfileGetResponse
	err := c.call("ProfileGet", ProfileGetRequest{Name: name}, &resp)
	return resp.Profile, err
}

// ProfileSave creates or replaces a profile.
func (c *Client) ProfileSave(profile profiles.Profile) error {
	return c.call("ProfileSave", ProfileSaveRequest{Profile: profile}, &Empty{})
}

// ProfileDelete removes a profile.
func (c *Client) ProfileDelete(name string) error {
	return c.call("ProfileDelete", ProfileDeleteRequest{Name: name}, &Empty{})
}

// ProfileDuplicate copies a profile under a new name.
func (c *Client) ProfileDuplicate(source, target string) error {
	return c.call("ProfileDuplicate", ProfileDuplicateRequest{Source: source, Target: target}, &Empty{})
}

// ProfileExport writes one profile to a file on the daemon host.
func (c *Client) ProfileExport(name, path string) error {
	return c.call("ProfileExport", ProfileExportRequest{Name: name, Path: path}, &Empty{})
}

// ProfileImport reads a profile file on the daemon host and stores it.
func (c *Client) ProfileImport(path string) (profiles.Profile, error) {
	var resp ProfileGetResponse
	err := c.call("ProfileImport", ProfileImportRequest{Path: path}, &resp)
	return resp.Profile, err
}

// Prefill probes source metadata.
func (c *Client) Prefill(sourceURL string) (PrefillResponse, error) {
	var resp PrefillResponse
	err := c.call("Prefill", PrefillRequest{SourceURL: sourceURL}, &resp)
	return resp, err
}

// TestNotification pushes a test event through the notification transport.
func (c *Client) TestNotification() error {
	return c.call("TestNotification", Empty{}, &Empty{})
}

// PurgeTemp removes scratch directories on the daemon host.
func (c *Client) PurgeTemp() (int, error) {
	var resp PurgeTempResponse
	err := c.call("PurgeTemp", Empty{}, &resp)
	return resp.Removed, err
}

// Shutdown asks the daemon to terminate.
func (c *Client) Shutdown() error {
	return c.call("Shutdown", Empty{}, &Empty{})
}
