package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
)

// WebhookConfig configures the generic webhook channel.
type WebhookConfig struct {
	Enabled bool
	URL     string
	Secret  string
}

// WebhookChannel posts drop messages to a generic HTTP endpoint.
// Every alert goes to the same configured URL.
type WebhookChannel struct {
	config WebhookConfig
	client *http.Client
}

// NewWebhookChannel creates a webhook channel.
// If a secret is set, requests are signed with HMAC-SHA256.
func NewWebhookChannel(config WebhookConfig) (*WebhookChannel, error) {
	if config.Enabled && config.URL == "" {
		return nil, fmt.Errorf("invalid webhook config: url is required")
	}
	return &WebhookChannel{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (w *WebhookChannel) Name() string  { return "webhook" }
func (w *WebhookChannel) Enabled() bool { return w.config.Enabled }

func (w *WebhookChannel) Destination(_ model.Alert) string { return w.config.URL }

func (w *WebhookChannel) Send(ctx context.Context, to, subject, body string) error {
	payload := webhookPayload{
		Event:     "price_drop",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Subject:   subject,
		Body:      body,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, to, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Fare-Guardian/1.0")

	if w.config.Secret != "" {
		req.Header.Set("X-Signature-256", "sha256="+Sign(data, w.config.Secret))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type webhookPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
