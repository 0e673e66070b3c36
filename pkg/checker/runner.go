package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/internal/metrics"
	"github.com/ogulcanaydogan/fare-guardian/pkg/fare"
	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/session"
)

// RunnerConfig holds the collaborators of a batch run.
type RunnerConfig struct {
	MaxSessions int
	Store       Store
	Launch      fare.Launcher
	Notifier    Notifier
	Logger      *slog.Logger
	Now         func() time.Time
}

// Runner executes one batch: launch, load, fan out, join, clean up.
// A Runner owns its store and closes it when Run returns, so it runs once.
type Runner struct {
	cfg    RunnerConfig
	logger *slog.Logger
	once   sync.Once
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Store == nil {
		return nil, errors.New("runner requires a store")
	}
	if cfg.Launch == nil {
		return nil, errors.New("runner requires a launcher")
	}
	if cfg.MaxSessions < 1 {
		cfg.MaxSessions = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}, nil
}

// Run checks every active alert and waits for all of them. Individual task
// failures only show up in the summary. The returned error is non-nil only
// for a *SetupError, and cleanup has run by the time Run returns.
func (r *Runner) Run(ctx context.Context) (summary model.Summary, err error) {
	start := time.Now()
	var browser fare.Browser
	defer func() { r.cleanup(browser) }()

	b, err := r.cfg.Launch(ctx, r.cfg.MaxSessions)
	if err != nil {
		return r.abort("launch", err)
	}
	browser = b

	alerts, err := r.cfg.Store.ListActiveAlerts(ctx)
	if err != nil {
		return r.abort("load", err)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Date.Before(alerts[j].Date)
	})

	limiter := session.NewLimiter(r.cfg.MaxSessions)
	limiter.OnChange = func(n int) { metrics.SessionsInUse.Set(float64(n)) }
	task := NewTask(r.cfg.Store, limiter, browser, r.cfg.Notifier, r.logger, r.cfg.Now)

	r.logger.Info("batch started", "alerts", len(alerts), "max_sessions", r.cfg.MaxSessions)

	outcomes := make([]model.Outcome, len(alerts))
	var wg sync.WaitGroup
	// Slots are requested here, one alert at a time in travel-date order, so
	// the earliest alerts are served first. Expired alerts never wait.
	for i, alert := range alerts {
		if alert.Expired(r.cfg.Now()) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcomes[i] = r.runTask(alert.ID, func() model.Outcome { return task.Expire(ctx, alert) })
			}()
			continue
		}

		slot, err := limiter.Acquire(ctx)
		if err != nil {
			r.logger.Warn("wait for session slot failed", "alert_id", alert.ID, "error", err)
			outcomes[i] = model.Failed(alert.ID, err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = r.runTask(alert.ID, func() model.Outcome { return task.CheckHeld(ctx, alert, slot) })
		}()
	}
	wg.Wait()

	for _, o := range outcomes {
		metrics.ChecksTotal.WithLabelValues(o.Kind.String()).Inc()
	}
	summary = model.Summarize(outcomes)
	summary.Duration = time.Since(start)

	metrics.BatchRunsTotal.WithLabelValues("ok").Inc()
	metrics.BatchDuration.Observe(summary.Duration.Seconds())
	r.logger.Info("batch finished",
		"total", summary.Total,
		"expired", summary.Expired,
		"dropped", summary.Dropped,
		"unchanged", summary.Unchanged,
		"failed", summary.Failed,
		"peak_sessions", limiter.Peak(),
		"duration", summary.Duration.String(),
	)
	return summary, nil
}

// runTask turns a panic in one task into a failed outcome for that alert only.
func (r *Runner) runTask(alertID string, check func() model.Outcome) (out model.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("alert check panicked",
				"alert_id", alertID,
				"panic", p,
				"stack", string(debug.Stack()),
			)
			out = model.Failed(alertID, fmt.Errorf("panic: %v", p))
		}
	}()
	return check()
}

func (r *Runner) abort(stage string, err error) (model.Summary, error) {
	metrics.BatchRunsTotal.WithLabelValues("setup_failed").Inc()
	setupErr := &SetupError{Stage: stage, Err: err}
	r.logger.Error("batch aborted", "stage", stage, "error", err)
	return model.Summary{}, setupErr
}

// cleanup closes the browser, if one was launched, then the store. It runs once.
func (r *Runner) cleanup(browser fare.Browser) {
	r.once.Do(func() {
		if browser != nil {
			if err := browser.Close(); err != nil {
				r.logger.Error("close browser failed", "error", err)
			}
		}
		if err := r.cfg.Store.Close(); err != nil {
			r.logger.Error("close store failed", "error", err)
		}
	})
}
