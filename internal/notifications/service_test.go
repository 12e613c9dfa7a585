package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clipshift/internal/config"
	"clipshift/internal/notifications"
)

func notifyingConfig(endpoint string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.Uploads = true
	cfg.Notifications.Queue = true
	cfg.Notifications.Discovery = true
	cfg.Notifications.Errors = true
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventUploadCompleted, notifications.Payload{"title": "Example"})
	if err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "upload completed",
			event: notifications.EventUploadCompleted,
			payload: notifications.Payload{
				"title":    "Morning Routine",
				"video_id": "abc123",
			},
			expectTitle:   "Clipshift - Published",
			expectMessage: "Published: Morning Routine (video abc123)",
			expectTags:    "clipshift,upload,completed",
		},
		{
			name:  "queue completed clean",
			event: notifications.EventQueueCompleted,
			payload: notifications.Payload{
				"processed": 3,
				"failed":    0,
				"duration":  90 * time.Second,
			},
			expectTitle:   "Clipshift - Queue Complete",
			expectMessage: "Queue drained: 3 items published in 1m30s",
			expectTags:    "clipshift,queue,completed",
		},
		{
			name:  "queue completed with failures",
			event: notifications.EventQueueCompleted,
			payload: notifications.Payload{
				"processed": 2,
				"failed":    1,
				"duration":  time.Minute,
			},
			expectTitle:   "Clipshift - Queue Complete (with errors)",
			expectMessage: "Queue drained: 2 published, 1 failed in 1m0s",
			expectTags:    "clipshift,queue,completed",
		},
		{
			name:  "auto paused",
			event: notifications.EventAutoPaused,
			payload: notifications.Payload{
				"count": 5,
			},
			expectTitle:   "Clipshift - Auto-Paused",
			expectMessage: "Worker paused after 5 completed uploads; resume when ready",
			expectTags:    "clipshift,queue,paused",
		},
		{
			name:  "discovery found",
			event: notifications.EventDiscoveryFound,
			payload: notifications.Payload{
				"title":   "Top 10 Knife Skills",
				"channel": "@cookingdaily",
			},
			expectTitle:   "Clipshift - Discovery",
			expectMessage: "New video queued: Top 10 Knife Skills from @cookingdaily",
			expectTags:    "clipshift,watch,found",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "publish (item #4)",
				"error":   errors.New("destination rejected credentials"),
			},
			expectTitle:    "Clipshift - Error",
			expectMessage:  "Error with publish (item #4): destination rejected credentials",
			expectTags:     "clipshift,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			svc := notifications.NewService(notifyingConfig(server.URL))
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsCategoryToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled category: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := notifyingConfig(server.URL)
	cfg.Notifications.Uploads = false
	cfg.Notifications.Queue = false
	cfg.Notifications.Discovery = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(cfg)
	disabled := []notifications.Event{
		notifications.EventUploadCompleted,
		notifications.EventQueueCompleted,
		notifications.EventAutoPaused,
		notifications.EventDiscoveryFound,
		notifications.EventError,
	}
	for _, event := range disabled {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"title": "ignored"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceTestEventIgnoresToggles(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := notifyingConfig(server.URL)
	cfg.Notifications.Uploads = false
	cfg.Notifications.Queue = false
	cfg.Notifications.Discovery = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("test notification failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := notifications.NewService(notifyingConfig(server.URL))
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil {
		t.Fatal("expected error from non-2xx response")
	}
}
