package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
)

const defaultTwilioBase = "https://api.twilio.com"

// SMSConfig holds Twilio credentials.
type SMSConfig struct {
	Enabled    bool
	AccountSID string
	AuthToken  string
	From       string
	APIBase    string // defaults to the public Twilio API
}

// SMSChannel sends text messages through the Twilio Messages API.
type SMSChannel struct {
	config SMSConfig
	client *http.Client
}

// NewSMSChannel creates an SMS channel. Credentials are only checked when enabled.
func NewSMSChannel(config SMSConfig) (*SMSChannel, error) {
	if config.Enabled {
		if config.AccountSID == "" || config.AuthToken == "" || config.From == "" {
			return nil, fmt.Errorf("invalid sms config: account_sid, auth_token and from are required")
		}
	}
	if config.APIBase == "" {
		config.APIBase = defaultTwilioBase
	}
	return &SMSChannel{
		config: config,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *SMSChannel) Name() string  { return "sms" }
func (s *SMSChannel) Enabled() bool { return s.config.Enabled }

func (s *SMSChannel) Destination(alert model.Alert) string { return alert.Phone }

// Send posts the body as the SMS text. The subject is not part of a text message.
func (s *SMSChannel) Send(ctx context.Context, to, _, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(s.config.APIBase, "/"), url.PathEscape(s.config.AccountSID))

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.config.From)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
