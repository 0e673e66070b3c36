package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
)

// SlackConfig configures the operator Slack feed.
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
	Channel    string
}

// SlackChannel posts every drop to one Slack incoming webhook, regardless of
// the alert's own contacts.
type SlackChannel struct {
	config SlackConfig
	client *http.Client
}

// NewSlackChannel creates a Slack webhook channel.
func NewSlackChannel(config SlackConfig) (*SlackChannel, error) {
	if config.Enabled && config.WebhookURL == "" {
		return nil, fmt.Errorf("invalid slack config: webhook_url is required")
	}
	return &SlackChannel{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *SlackChannel) Name() string  { return "slack" }
func (s *SlackChannel) Enabled() bool { return s.config.Enabled }

func (s *SlackChannel) Destination(_ model.Alert) string { return s.config.WebhookURL }

func (s *SlackChannel) Send(ctx context.Context, to, subject, body string) error {
	payload := slackPayload{
		Channel: s.config.Channel,
		Attachments: []slackAttachment{{
			Color:  "#36a64f",
			Title:  subject,
			Text:   body,
			Footer: "Fare Guardian",
			Ts:     time.Now().Unix(),
		}},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, to, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string `json:"color"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Footer string `json:"footer"`
	Ts     int64  `json:"ts"`
}
