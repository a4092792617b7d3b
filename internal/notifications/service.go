// Package notifications delivers best-effort user notifications. Failures
// are logged and swallowed by callers; they never propagate into the
// pipeline.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"printdrop/internal/config"
	"printdrop/internal/l10n"
)

const userAgent = "printdrop/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyArchived(ctx context.Context, filename, destination string) error
	NotifyArchivedWithoutPrinting(ctx context.Context, filename string) error
	NotifyPrintStarted(ctx context.Context, filename, printer string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		catalog:  l10n.NewCatalog(cfg.Language),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	catalog  *l10n.Catalog
}

func (n *ntfyService) NotifyArchived(ctx context.Context, filename, destination string) error {
	data := payload{
		title:   n.catalog.Get("notify.archived.title"),
		message: n.catalog.Get("notify.archived.message", filename, destination),
		tags:    []string{"printdrop", "archive", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyArchivedWithoutPrinting(ctx context.Context, filename string) error {
	data := payload{
		title:   n.catalog.Get("notify.noprint.title"),
		message: n.catalog.Get("notify.noprint.message", filename),
		tags:    []string{"printdrop", "archive", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPrintStarted(ctx context.Context, filename, printer string) error {
	if strings.TrimSpace(printer) == "" {
		printer = "default"
	}
	data := payload{
		title:   n.catalog.Get("notify.print_started.title"),
		message: n.catalog.Get("notify.print_started.message", filename, printer),
		tags:    []string{"printdrop", "print", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel == "" {
		contextLabel = "processing"
	}
	data := payload{
		title:    n.catalog.Get("notify.error.title"),
		message:  n.catalog.Get("notify.error.message", contextLabel, detail),
		tags:     []string{"printdrop", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    n.catalog.Get("notify.test.title"),
		message:  n.catalog.Get("notify.test.message"),
		tags:     []string{"printdrop", "test"},
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
	if data.priority != "" {
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

func (noopService) NotifyArchived(context.Context, string, string) error        { return nil }
func (noopService) NotifyArchivedWithoutPrinting(context.Context, string) error { return nil }
func (noopService) NotifyPrintStarted(context.Context, string, string) error    { return nil }
func (noopService) NotifyError(context.Context, error, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
