// Package notify sends push notifications through the Pushover API.
// Notifications are advisory: callers that don't care about delivery
// use [Pushover.Fire], which swallows failures.
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

// DefaultEndpoint is the Pushover message API.
const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

// Pushover sends messages to a single Pushover user. A nil *Pushover
// is safe to use and drops every message, so callers don't need to
// guard the unconfigured case.
type Pushover struct {
	token      string
	user       string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Pushover notifier. Returns nil when token is empty,
// which disables notifications.
func New(token, user string, logger *slog.Logger) *Pushover {
	if token == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pushover{
		token:    token,
		user:     user,
		endpoint: DefaultEndpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// SetEndpoint overrides the API endpoint. Used by tests.
func (p *Pushover) SetEndpoint(endpoint string) {
	if p != nil {
		p.endpoint = endpoint
	}
}

// Push sends a message and reports delivery errors.
func (p *Pushover) Push(ctx context.Context, text string) error {
	if p == nil {
		return nil
	}

	form := url.Values{
		"token":   {p.token},
		"user":    {p.user},
		"message": {text},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Fire sends a message and discards any delivery error. Notification
// failure must never affect the outcome of a conversation turn.
func (p *Pushover) Fire(ctx context.Context, text string) {
	if p == nil {
		return
	}
	if err := p.Push(ctx, text); err != nil {
		p.logger.Debug("push notification failed", "error", err)
	}
}
