package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"overdub/internal/config"
	"overdub/internal/notifications"
)

func enabledConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.JobComplete = true
	cfg.Notifications.JobFailed = true
	cfg.Notifications.Review = true
	cfg.Notifications.Queue = true
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventJobComplete, notifications.Payload{"title": "Example"})
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
		expectContains string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "job complete",
			event: notifications.EventJobComplete,
			payload: notifications.Payload{
				"title":    "lecture-01",
				"language": "Azerbaijani",
				"output":   "/library/lecture-01.dubbed.az.mp4",
			},
			expectTitle:    "Overdub - Job Complete",
			expectContains: "Dub complete: lecture-01 → Azerbaijani",
			expectTags:     "overdub,job,completed",
		},
		{
			name:  "job failed",
			event: notifications.EventJobFailed,
			payload: notifications.Payload{
				"error":   errors.New("sync tolerance exceeded"),
				"context": "alignment (job #7)",
			},
			expectTitle:    "Overdub - Job Failed",
			expectContains: "Job failed in alignment (job #7): sync tolerance exceeded",
			expectTags:     "overdub,job,failed",
			expectPriority: "high",
		},
		{
			name:  "queue completed",
			event: notifications.EventQueueCompleted,
			payload: notifications.Payload{
				"processed": 3,
				"failed":    1,
			},
			expectTitle:    "Overdub - Queue Complete",
			expectContains: "Queue drained: 3 completed, 1 failed",
			expectTags:     "overdub,queue,completed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotTitle, gotTags, gotPriority, gotBody string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotTitle = r.Header.Get("Title")
				gotTags = r.Header.Get("Tags")
				gotPriority = r.Header.Get("Priority")
				body, _ := io.ReadAll(r.Body)
				gotBody = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			svc := notifications.NewService(enabledConfig(server.URL))
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if gotTitle != tc.expectTitle {
				t.Errorf("title = %q, want %q", gotTitle, tc.expectTitle)
			}
			if !strings.Contains(gotBody, tc.expectContains) {
				t.Errorf("body = %q, want substring %q", gotBody, tc.expectContains)
			}
			if gotTags != tc.expectTags {
				t.Errorf("tags = %q, want %q", gotTags, tc.expectTags)
			}
			if gotPriority != tc.expectPriority {
				t.Errorf("priority = %q, want %q", gotPriority, tc.expectPriority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventFlags(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := enabledConfig(server.URL)
	cfg.Notifications.Queue = false
	svc := notifications.NewService(cfg)

	if err := svc.Publish(context.Background(), notifications.EventQueueStarted, notifications.Payload{"count": 2}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls != 0 {
		t.Fatalf("disabled event reached ntfy %d times", calls)
	}

	if err := svc.Publish(context.Background(), notifications.EventJobFailed, notifications.Payload{"error": errors.New("x")}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls != 1 {
		t.Fatalf("enabled event calls = %d, want 1", calls)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := notifications.NewService(enabledConfig(server.URL))
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected 500 error, got %v", err)
	}
}
