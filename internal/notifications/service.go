package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipshift/internal/config"
)

const userAgent = "Clipshift/0.1.0"

// Event names a pipeline milestone worth pushing to the operator.
type Event string

const (
	// EventUploadCompleted fires when an item finishes publishing.
	EventUploadCompleted Event = "upload_completed"
	// EventQueueCompleted fires when the queue drains with no active items.
	EventQueueCompleted Event = "queue_completed"
	// EventAutoPaused fires when the worker pauses itself after the configured
	// number of completions.
	EventAutoPaused Event = "auto_paused"
	// EventDiscoveryFound fires when the watch poller enqueues a new video.
	EventDiscoveryFound Event = "discovery_found"
	// EventError fires when an item fails terminally.
	EventError Event = "error"
	// EventTest is the operator-triggered connectivity check.
	EventTest Event = "test"
)

// Payload carries event-specific values used to format the message.
type Payload map[string]any

// Service is the notification surface the worker and poller depend on.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		settings: cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	settings config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// enabled applies the per-category config toggles. The test event always goes
// through so operators can verify connectivity regardless of settings.
func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventUploadCompleted:
		return n.settings.Uploads
	case EventQueueCompleted, EventAutoPaused:
		return n.settings.Queue
	case EventDiscoveryFound:
		return n.settings.Discovery
	case EventError:
		return n.settings.Errors
	case EventTest:
		return true
	default:
		return false
	}
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventUploadCompleted:
		title := payloadString(payload, "title")
		videoID := payloadString(payload, "video_id")
		body := fmt.Sprintf("Published: %s", title)
		if videoID != "" {
			body = fmt.Sprintf("%s (video %s)", body, videoID)
		}
		return message{
			title: "Clipshift - Published",
			body:  body,
			tags:  []string{"clipshift", "upload", "completed"},
		}, true
	case EventQueueCompleted:
		processed := payloadInt(payload, "processed")
		failed := payloadInt(payload, "failed")
		duration := payloadDuration(payload, "duration")
		var body string
		title := "Clipshift - Queue Complete"
		if failed == 0 {
			body = fmt.Sprintf("Queue drained: %d items published in %s", processed, duration)
		} else {
			title = "Clipshift - Queue Complete (with errors)"
			body = fmt.Sprintf("Queue drained: %d published, %d failed in %s", processed, failed, duration)
		}
		return message{
			title: title,
			body:  body,
			tags:  []string{"clipshift", "queue", "completed"},
		}, true
	case EventAutoPaused:
		count := payloadInt(payload, "count")
		return message{
			title: "Clipshift - Auto-Paused",
			body:  fmt.Sprintf("Worker paused after %d completed uploads; resume when ready", count),
			tags:  []string{"clipshift", "queue", "paused"},
		}, true
	case EventDiscoveryFound:
		title := payloadString(payload, "title")
		channel := payloadString(payload, "channel")
		body := fmt.Sprintf("New video queued: %s", title)
		if channel != "" {
			body = fmt.Sprintf("%s from %s", body, channel)
		}
		return message{
			title: "Clipshift - Discovery",
			body:  body,
			tags:  []string{"clipshift", "watch", "found"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if contextLabel := payloadString(payload, "context"); contextLabel != "" {
			builder.WriteString(" with ")
			builder.WriteString(contextLabel)
		}
		builder.WriteString(": ")
		if errText := payloadString(payload, "error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Clipshift - Error",
			body:     builder.String(),
			tags:     []string{"clipshift", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Clipshift - Test",
			body:     "Notification system test",
			tags:     []string{"clipshift", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch value := payload[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case error:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(value.Error())
	case fmt.Stringer:
		return strings.TrimSpace(value.String())
	default:
		return ""
	}
}

func payloadInt(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch value := payload[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return 0
	}
}

func payloadDuration(payload Payload, key string) string {
	if payload == nil {
		return "0s"
	}
	duration, ok := payload[key].(time.Duration)
	if !ok || duration < 0 {
		return "0s"
	}
	duration = duration.Round(time.Second)
	if duration == 0 {
		return "0s"
	}
	return duration.String()
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
