// Package checker runs one batch of price checks over the active alerts.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/internal/metrics"
	"github.com/ogulcanaydogan/fare-guardian/pkg/fare"
	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/notify"
	"github.com/ogulcanaydogan/fare-guardian/pkg/session"
)

// Store is the part of the alert store a batch run needs.
type Store interface {
	ListActiveAlerts(ctx context.Context) ([]model.Alert, error)
	SaveAlert(ctx context.Context, alert *model.Alert) error
	DeleteAlert(ctx context.Context, id string) error
	Close() error
}

// Notifier hands a price drop to the delivery channels.
type Notifier interface {
	Dispatch(ctx context.Context, alert model.Alert, ev model.DropEvent) notify.Report
}

// Task checks a single alert. One Task value is shared by every alert of a run.
type Task struct {
	store    Store
	limiter  *session.Limiter
	fetcher  fare.Fetcher
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewTask wires a task. A nil notifier disables dispatch and a nil clock uses time.Now.
func NewTask(store Store, limiter *session.Limiter, fetcher fare.Fetcher, notifier Notifier, logger *slog.Logger, now func() time.Time) *Task {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Task{
		store:    store,
		limiter:  limiter,
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logger,
		now:      now,
	}
}

// Check runs expire-check, acquire, fetch, persist and notify for one alert,
// in that order. It never returns an error; failures are reported through the
// outcome.
func (t *Task) Check(ctx context.Context, alert model.Alert) model.Outcome {
	if alert.Expired(t.now()) {
		return t.Expire(ctx, alert)
	}

	slot, err := t.limiter.Acquire(ctx)
	if err != nil {
		t.logger.Warn("wait for session slot failed", "alert_id", alert.ID, "error", err)
		return model.Failed(alert.ID, err)
	}
	return t.CheckHeld(ctx, alert, slot)
}

// Expire deletes an alert whose travel date has passed. No slot is used.
func (t *Task) Expire(ctx context.Context, alert model.Alert) model.Outcome {
	log := t.logger.With("alert_id", alert.ID, "alert", alert.Label())

	if err := t.store.DeleteAlert(ctx, alert.ID); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("delete").Inc()
		err = fmt.Errorf("%w: delete: %w", ErrPersist, err)
		log.Error("delete expired alert failed", "error", err)
		return model.Failed(alert.ID, err)
	}
	log.Info("alert expired, deleted")
	return model.Expired(alert.ID)
}

// CheckHeld runs fetch, persist and notify for a live alert using a slot the
// caller acquired from the task's limiter. The slot is released as soon as
// the fetch returns, and on every other exit path.
func (t *Task) CheckHeld(ctx context.Context, alert model.Alert, slot *session.Slot) model.Outcome {
	defer t.limiter.Release(slot)
	log := t.logger.With("alert_id", alert.ID, "alert", alert.Label())

	newPrice, err := t.fetch(ctx, alert, slot)
	if err != nil {
		log.Warn("price check failed", "error", err)
		return model.Failed(alert.ID, err)
	}

	alert.LatestPrice = newPrice
	if err := t.store.SaveAlert(ctx, &alert); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("save").Inc()
		log.Error("save observed price failed",
			"error", fmt.Errorf("%w: save: %w", ErrPersist, err),
			"price", newPrice,
		)
	}

	delta := alert.Price - newPrice
	if delta <= 0 {
		log.Debug("price unchanged", "price", alert.Price, "observed", newPrice)
		return model.Unchanged(alert.ID, newPrice)
	}

	log.Info("price dropped",
		"was", model.FormatPrice(alert.Price),
		"now", model.FormatPrice(newPrice),
		"delta", delta,
	)
	if t.notifier != nil {
		if !alert.HasContact() {
			log.Debug("alert has no email or phone")
		}
		report := t.notifier.Dispatch(ctx, alert, model.NewDropEvent(alert, newPrice))
		if err := report.Err(); err != nil {
			log.Warn("drop notification incomplete",
				"delivered", report.Delivered,
				"skipped", report.Skipped,
				"error", err,
			)
		} else {
			log.Info("drop notification sent",
				"delivered", report.Delivered,
				"skipped", report.Skipped,
			)
		}
	}
	return model.Dropped(alert.ID, delta, newPrice)
}

// fetch looks the price up and gives the slot back before returning.
func (t *Task) fetch(ctx context.Context, alert model.Alert, slot *session.Slot) (int, error) {
	defer t.limiter.Release(slot)

	start := time.Now()
	price, err := t.fetcher.FetchPrice(ctx, slot, fare.QueryFor(alert))
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.FetchDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return price, nil
}
