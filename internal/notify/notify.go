// Package notify delivers push notifications to the configured channel.
// The watcher treats sends as fire-and-forget: a failed send is reported
// to the caller for logging but is never retried by the transport.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Notifier sends a message through one configured channel.
type Notifier interface {
	// Send delivers message using the given channel mode. Mode is a
	// transport-specific delivery hint ("push", "quiet").
	Send(ctx context.Context, mode, message string) error
}

// LogNotifier writes notifications to the log instead of sending them.
// Used when no transport credentials are configured (dry-run).
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, mode, message string) error {
	slog.Info("dry-run notification", "mode", mode, "message", message)
	return nil
}

const pushoverEndpoint = "https://api.pushover.net/1/messages.json"

// PushoverNotifier sends messages through the Pushover API.
type PushoverNotifier struct {
	token    string
	user     string
	endpoint string
	client   *http.Client
}

// NewPushoverNotifier creates a notifier for the given application token
// and user key.
func NewPushoverNotifier(token, user string) *PushoverNotifier {
	return &PushoverNotifier{
		token:    token,
		user:     user,
		endpoint: pushoverEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message to Pushover. Mode "quiet" delivers at low
// priority; any other mode delivers normally.
func (p *PushoverNotifier) Send(ctx context.Context, mode, message string) error {
	form := url.Values{
		"token":   {p.token},
		"user":    {p.user},
		"message": {message},
	}
	if mode == "quiet" {
		form.Set("priority", "-1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify: pushover returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
