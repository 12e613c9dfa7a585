package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateUpload() error {
	if err := ensurePositiveMap(map[string]int{
		"upload.chunk_size_mb":   c.Upload.ChunkSizeMB,
		"upload.timeout_seconds": c.Upload.TimeoutSeconds,
		"fetch.timeout_seconds":  c.Fetch.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Upload.MaxRetries < 0 {
		return errors.New("upload.max_retries must be >= 0")
	}
	switch c.Upload.DefaultPrivacy {
	case "private", "unlisted", "public":
	default:
		return fmt.Errorf("upload.default_privacy must be private, unlisted, or public (got %q)", c.Upload.DefaultPrivacy)
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.PollInterval <= 0 {
		return errors.New("queue.poll_interval must be positive")
	}
	if c.Queue.HeartbeatInterval <= 0 {
		return errors.New("queue.heartbeat_interval must be positive")
	}
	if c.Queue.AutoPauseEnabled && c.Queue.AutoPauseAfter < 1 {
		return errors.New("queue.auto_pause_after must be >= 1 when queue.auto_pause_enabled is true")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.Enabled && strings.TrimSpace(c.Watch.Handle) == "" {
		return errors.New("watch.handle must be set when watch.enabled is true")
	}
	if c.Watch.PollInterval <= 0 {
		return errors.New("watch.poll_interval must be positive (seconds)")
	}
	if c.Watch.PerCycleQuota <= 0 {
		return errors.New("watch.per_cycle_quota must be positive")
	}
	if c.Watch.MaxDuration > 0 && c.Watch.MinDuration > c.Watch.MaxDuration {
		return errors.New("watch.min_duration must not exceed watch.max_duration when both are set")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
