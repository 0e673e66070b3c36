package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ogulcanaydogan/fare-guardian/internal/metrics"
	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
)

// Dispatcher routes drop events to every configured channel.
type Dispatcher struct {
	channels []Channel
	baseURL  string
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. baseURL is used for the change-price link.
// A nil logger uses slog.Default.
func NewDispatcher(channels []Channel, baseURL string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		channels: channels,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Dispatch renders the event once and tries each channel independently.
// A channel is skipped when disabled or when the alert has no destination for
// it. Failures are logged and reported, never returned to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, alert model.Alert, ev model.DropEvent) Report {
	msg := Compose(ev, d.baseURL)
	report := Report{Failed: make(map[string]error)}

	for _, ch := range d.channels {
		name := ch.Name()
		if !ch.Enabled() {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		to := ch.Destination(alert)
		if to == "" {
			report.Skipped = append(report.Skipped, name)
			continue
		}

		if err := ch.Send(ctx, to, msg.Subject, msg.Body); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrDelivery, name, err)
			report.Failed[name] = err
			metrics.NotificationsTotal.WithLabelValues(name, "failed").Inc()
			d.logger.Error("send notification failed",
				"channel", name,
				"alert_id", alert.ID,
				"error", err,
			)
			continue
		}

		report.Delivered = append(report.Delivered, name)
		metrics.NotificationsTotal.WithLabelValues(name, "sent").Inc()
		d.logger.Info("notification sent", "channel", name, "alert_id", alert.ID)
	}

	return report
}
