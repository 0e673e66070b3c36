// Package notify turns price drops into messages and delivers them.
package notify

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
)

// ErrDelivery wraps every channel send failure.
var ErrDelivery = errors.New("notification delivery failed")

// Channel delivers a rendered message to one kind of destination.
type Channel interface {
	// Name returns the channel identifier (e.g. "email", "sms").
	Name() string

	// Enabled reports whether the channel is switched on.
	Enabled() bool

	// Destination returns where this alert should be delivered on this
	// channel, or "" when the alert has no contact for it.
	Destination(alert model.Alert) string

	// Send delivers one message. Implementations must be safe for concurrent use.
	Send(ctx context.Context, to, subject, body string) error
}

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// Report records what happened to one dispatch.
type Report struct {
	Delivered []string
	Skipped   []string
	Failed    map[string]error
}

// Err joins every channel failure, or returns nil if none failed.
func (r Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, err := range r.Failed {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
