package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"logowatch/internal/config"
	"logowatch/internal/monitor"
)

const userAgent = "logowatch/0.1.0"

// Service defines the notification surface exposed to the scheduler and CLI.
type Service interface {
	NotifyCheckCompleted(ctx context.Context, summary monitor.Summary, duration time.Duration) error
	NotifyLogoDetected(ctx context.Context, streamer string, confidence float64) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
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
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		checks:     cfg.Notifications.Checks,
		detections: cfg.Notifications.Detections,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	checks     bool
	detections bool
	errors     bool
}

func (n *ntfyService) NotifyCheckCompleted(ctx context.Context, summary monitor.Summary, duration time.Duration) error {
	if !n.checks {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var message string
	if summary.Live == 0 {
		message = "Pass complete: no streams live"
	} else {
		message = fmt.Sprintf("Pass complete: %d live, %d analyzed, %d detected in %s",
			summary.Live, summary.Analyzed, summary.Detected, duration)
		if summary.Skipped > 0 {
			message = fmt.Sprintf("%s (%d skipped)", message, summary.Skipped)
		}
	}

	data := payload{
		title:   "logowatch - Check Complete",
		message: message,
		tags:    []string{"logowatch", "check", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyLogoDetected(ctx context.Context, streamer string, confidence float64) error {
	if !n.detections {
		return nil
	}
	streamer = strings.TrimSpace(streamer)
	data := payload{
		title:    "logowatch - Logo Detected",
		message:  fmt.Sprintf("Logo detected on %s (confidence %.1f%%)", streamer, confidence*100),
		tags:     []string{"logowatch", "detected"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "logowatch - Error",
		message:  builder.String(),
		tags:     []string{"logowatch", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "logowatch - Test",
		message:  "Notification system test",
		tags:     []string{"logowatch", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

func (noopService) NotifyCheckCompleted(context.Context, monitor.Summary, time.Duration) error {
	return nil
}
func (noopService) NotifyLogoDetected(context.Context, string, float64) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
