// Package notify delivers outbox events to their destinations.
package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"shopledger/internal/domain/notification"
	"shopledger/pkg/logger"
)

// LogDispatcher writes events to the application log. Used when no webhook
// is configured.
type LogDispatcher struct{}

var _ notification.Dispatcher = LogDispatcher{}

// Dispatch implements notification.Dispatcher.
func (LogDispatcher) Dispatch(ctx context.Context, e *notification.Event) error {
	logger.Info(ctx, "notification",
		"event_id", e.ID,
		"event_type", e.Type,
		"aggregate_type", e.AggregateType,
		"aggregate_id", e.AggregateID,
		"payload", e.Payload,
	)
	return nil
}

// WebhookConfig configures WebhookDispatcher.
type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
	Retries int
}

// WebhookDispatcher POSTs events as JSON to a fixed URL.
// With a secret set, the body is signed with HMAC-SHA256 in X-Signature.
type WebhookDispatcher struct {
	client *resty.Client
	url    string
	secret []byte
}

var _ notification.Dispatcher = (*WebhookDispatcher)(nil)

// NewWebhookDispatcher creates a dispatcher with its own HTTP client.
func NewWebhookDispatcher(cfg WebhookConfig) *WebhookDispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "shopledger-notify/1").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &WebhookDispatcher{
		client: client,
		url:    cfg.URL,
		secret: []byte(cfg.Secret),
	}
}

// Dispatch implements notification.Dispatcher. Any non-2xx response is an error
// so the relay retries the event later.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, e *notification.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req := d.client.R().
		SetContext(ctx).
		SetHeader("X-Event-ID", e.ID.String()).
		SetHeader("X-Event-Type", string(e.Type)).
		SetBody(body)
	if len(d.secret) > 0 {
		req.SetHeader("X-Signature", Sign(d.secret, body))
	}

	resp, err := req.Post(d.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook status: %d", resp.StatusCode())
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
