// Package schedule runs the batch on a cron schedule for watch mode.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run. The context is cancelled when the scheduler stops.
type Job func(ctx context.Context)

// Scheduler fires a job on a five-field cron spec. A tick that arrives while
// the previous run is still going is skipped.
type Scheduler struct {
	c      *cron.Cron
	loc    *time.Location
	spec   string
	id     cron.EntryID
	log    *slog.Logger
	cancel context.CancelFunc
}

// New parses spec in the named timezone and registers job.
func New(spec, timezone string, job Job, log *slog.Logger) (*Scheduler, error) {
	loc, err := loadLocation(timezone)
	if err != nil {
		return nil, err
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	logger := cronLogger{log: log}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	s := &Scheduler{c: c, loc: loc, spec: spec, log: log}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	id, err := c.AddFunc(spec, func() { job(ctx) })
	if err != nil {
		cancel()
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	s.id = id
	return s, nil
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.c.Start()
	s.log.Info("scheduler started", slog.String("cron", s.spec), slog.String("tz", s.loc.String()))
}

// RunNow fires the job once on the calling goroutine, through the same
// recover and skip-if-running chain as a scheduled tick. It returns at once
// when a run is already in progress.
func (s *Scheduler) RunNow() {
	s.c.Entry(s.id).WrappedJob.Run()
}

// Next returns the next time the job will fire.
func (s *Scheduler) Next() time.Time {
	entries := s.c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop cancels the running job's context and waits for it to return, or for
// ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// cronLogger routes cron's own messages into slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
