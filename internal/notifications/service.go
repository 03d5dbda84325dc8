package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"overdub/internal/config"
)

const userAgent = "Overdub/0.1.0"

// Event identifies one notification kind.
type Event string

// Events published by the workflow and CLI.
const (
	EventJobComplete    Event = "job_complete"
	EventJobFailed      Event = "job_failed"
	EventJobReview      Event = "job_review"
	EventQueueStarted   Event = "queue_started"
	EventQueueCompleted Event = "queue_completed"
	EventTest           Event = "test"
)

// Payload carries event-specific fields. Renderers read what they know and
// ignore the rest.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
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

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled:  cfg.Notifications,
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
	enabled  config.Notifications
}

// Publish renders and sends one event. Events disabled in configuration
// return nil without contacting ntfy.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.eventEnabled(event) {
		return nil
	}
	return n.send(ctx, render(event, payload))
}

func (n *ntfyService) eventEnabled(event Event) bool {
	switch event {
	case EventJobComplete:
		return n.enabled.JobComplete
	case EventJobFailed:
		return n.enabled.JobFailed
	case EventJobReview:
		return n.enabled.Review
	case EventQueueStarted, EventQueueCompleted:
		return n.enabled.Queue
	default:
		return true
	}
}

func render(event Event, payload Payload) message {
	title := payloadString(payload, "title")
	switch event {
	case EventJobComplete:
		body := fmt.Sprintf("Dub complete: %s → %s", title, payloadString(payload, "language"))
		if output := payloadString(payload, "output"); output != "" {
			body += "\n" + output
		}
		if warnings := payloadString(payload, "warnings"); warnings != "" {
			body += "\n" + warnings
		}
		return message{
			title: "Overdub - Job Complete",
			body:  body,
			tags:  []string{"overdub", "job", "completed"},
		}
	case EventJobFailed:
		var builder strings.Builder
		builder.WriteString("Job failed")
		if contextLabel := payloadString(payload, "context"); contextLabel != "" {
			builder.WriteString(" in ")
			builder.WriteString(contextLabel)
		}
		builder.WriteString(": ")
		if err, ok := payload["error"].(error); ok && err != nil {
			builder.WriteString(strings.TrimSpace(err.Error()))
		} else {
			builder.WriteString("unknown error")
		}
		return message{
			title:    "Overdub - Job Failed",
			body:     builder.String(),
			tags:     []string{"overdub", "job", "failed"},
			priority: "high",
		}
	case EventJobReview:
		body := fmt.Sprintf("Needs review: %s", title)
		if reason := payloadString(payload, "reason"); reason != "" {
			body += "\n" + reason
		}
		return message{
			title: "Overdub - Review",
			body:  body,
			tags:  []string{"overdub", "job", "review"},
		}
	case EventQueueStarted:
		return message{
			title: "Overdub - Queue Started",
			body:  fmt.Sprintf("Processing %d job(s)", payloadInt(payload, "count")),
			tags:  []string{"overdub", "queue", "started"},
		}
	case EventQueueCompleted:
		body := fmt.Sprintf("Queue drained: %d completed, %d failed",
			payloadInt(payload, "processed"), payloadInt(payload, "failed"))
		if duration, ok := payload["duration"].(time.Duration); ok && duration > 0 {
			body += fmt.Sprintf(" in %s", duration.Round(time.Second))
		}
		return message{
			title: "Overdub - Queue Complete",
			body:  body,
			tags:  []string{"overdub", "queue", "completed"},
		}
	case EventTest:
		return message{
			title:    "Overdub - Test",
			body:     "Notification system test",
			tags:     []string{"overdub", "test"},
			priority: "low",
		}
	default:
		return message{
			title: "Overdub",
			body:  string(event),
			tags:  []string{"overdub"},
		}
	}
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
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
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
