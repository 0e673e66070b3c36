package checker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/fare"
	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/notify"
	"github.com/ogulcanaydogan/fare-guardian/pkg/session"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAlert(id, flight string, daysOut, price int) model.Alert {
	return model.Alert{
		ID:           id,
		FlightNumber: flight,
		Origin:       "DAL",
		Destination:  "HOU",
		Date:         now.AddDate(0, 0, daysOut),
		Kind:         model.KindSingleFlight,
		Price:        price,
		Email:        "traveler@example.com",
		Active:       true,
	}
}

type fakeStore struct {
	mu      sync.Mutex
	alerts  []model.Alert
	saved   map[string][]int
	deleted []string
	closed  int

	listErr   error
	saveErr   error
	deleteErr error
}

func newFakeStore(alerts ...model.Alert) *fakeStore {
	return &fakeStore{alerts: alerts, saved: make(map[string][]int)}
}

func (s *fakeStore) ListActiveAlerts(context.Context) ([]model.Alert, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]model.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out, nil
}

func (s *fakeStore) SaveAlert(_ context.Context, a *model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[a.ID] = append(s.saved[a.ID], a.LatestPrice)
	return s.saveErr
}

func (s *fakeStore) DeleteAlert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeStore) savesFor(id string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.saved[id]...)
}

// fakeBrowser answers by flight number and tracks concurrent fetches.
type fakeBrowser struct {
	prices map[string]int
	errs   map[string]error
	delay  time.Duration
	panics map[string]bool

	calls    atomic.Int64
	inFlight atomic.Int64
	highest  atomic.Int64
	closed   atomic.Int64

	mu    sync.Mutex
	order []string
	slots map[int]bool
}

func (b *fakeBrowser) FetchPrice(ctx context.Context, slot *session.Slot, q fare.Query) (int, error) {
	b.calls.Add(1)
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		h := b.highest.Load()
		if n <= h || b.highest.CompareAndSwap(h, n) {
			break
		}
	}

	b.mu.Lock()
	b.order = append(b.order, q.FlightNumber)
	if b.slots == nil {
		b.slots = make(map[int]bool)
	}
	b.slots[slot.ID()] = true
	b.mu.Unlock()

	if b.panics[q.FlightNumber] {
		panic("scraper crashed")
	}
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err := b.errs[q.FlightNumber]; err != nil {
		return 0, err
	}
	p, ok := b.prices[q.FlightNumber]
	if !ok {
		return 0, fare.ErrNoFare
	}
	return p, nil
}

func (b *fakeBrowser) Close() error {
	b.closed.Add(1)
	return nil
}

func (b *fakeBrowser) launcher() fare.Launcher {
	return func(context.Context, int) (fare.Browser, error) { return b, nil }
}

func failingLauncher(err error) fare.Launcher {
	return func(context.Context, int) (fare.Browser, error) { return nil, err }
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []model.DropEvent
	fail   error // reported as an sms failure when set
}

func (n *fakeNotifier) Dispatch(_ context.Context, _ model.Alert, ev model.DropEvent) notify.Report {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	report := notify.Report{Delivered: []string{"email"}, Failed: map[string]error{}}
	if n.fail != nil {
		report.Failed["sms"] = n.fail
	}
	return report
}

func (n *fakeNotifier) all() []model.DropEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.DropEvent(nil), n.events...)
}

var errScrape = errors.New("page timed out")
