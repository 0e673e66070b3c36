package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int // 465 for implicit TLS, otherwise STARTTLS when offered
	Username string
	Password string
	From     string
}

// Validate checks the settings needed to send mail.
func (c EmailConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("SMTP port is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	return nil
}

// EmailChannel sends plain-text mail over SMTP to the alert's email address.
type EmailChannel struct {
	config EmailConfig
	dialer *net.Dialer
}

// NewEmailChannel creates an SMTP channel. Settings are only validated when enabled.
func NewEmailChannel(config EmailConfig) (*EmailChannel, error) {
	if config.Enabled {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid email config: %w", err)
		}
	}
	return &EmailChannel{
		config: config,
		dialer: &net.Dialer{Timeout: 30 * time.Second},
	}, nil
}

func (e *EmailChannel) Name() string  { return "email" }
func (e *EmailChannel) Enabled() bool { return e.config.Enabled }

func (e *EmailChannel) Destination(alert model.Alert) string { return alert.Email }

func (e *EmailChannel) Send(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(e.config.Host, fmt.Sprint(e.config.Port))
	tlsConfig := &tls.Config{ServerName: e.config.Host}

	client, err := e.connect(ctx, addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer client.Close()

	if e.config.Username != "" && e.config.Password != "" {
		auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication: %w", err)
		}
	}

	if err := client.Mail(extractEmail(e.config.From)); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("add recipient %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("start data: %w", err)
	}
	if _, err := w.Write(e.buildMessage(to, subject, body)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return client.Quit()
}

func (e *EmailChannel) connect(ctx context.Context, addr string, tlsConfig *tls.Config) (*smtp.Client, error) {
	if e.config.Port == 465 {
		td := &tls.Dialer{NetDialer: e.dialer, Config: tlsConfig}
		conn, err := td.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, e.config.Host)
	}

	conn, err := e.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	client, err := smtp.NewClient(conn, e.config.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS: %w", err)
		}
	}
	return client, nil
}

func (e *EmailChannel) buildMessage(to, subject, body string) []byte {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mimeSubject(subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	msg.WriteString("\r\n")
	return []byte(msg.String())
}

// mimeSubject Q-encodes subjects that carry non-ASCII text such as "✈" or "→".
func mimeSubject(s string) string {
	for _, r := range s {
		if r > 127 {
			return mimeQEncode(s)
		}
	}
	return s
}

func mimeQEncode(s string) string {
	var b strings.Builder
	b.WriteString("=?UTF-8?q?")
	for _, c := range []byte(s) {
		switch {
		case c == ' ':
			b.WriteByte('_')
		case c >= '!' && c <= '~' && c != '=' && c != '?' && c != '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "=%02X", c)
		}
	}
	b.WriteString("?=")
	return b.String()
}

// extractEmail extracts the address from a "Name <email>" form.
func extractEmail(addr string) string {
	if start := strings.Index(addr, "<"); start != -1 {
		if end := strings.Index(addr, ">"); end > start {
			return addr[start+1 : end]
		}
	}
	return addr
}
