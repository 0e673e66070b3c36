package checker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/checker"
	"github.com/ogulcanaydogan/fare-guardian/pkg/fare"
	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T, n int, store *fakeStore, launch fare.Launcher, notifier checker.Notifier) *checker.Runner {
	t.Helper()
	r, err := checker.NewRunner(checker.RunnerConfig{
		MaxSessions: n,
		Store:       store,
		Launch:      launch,
		Notifier:    notifier,
		Logger:      discardLogger(),
		Now:         clock,
	})
	require.NoError(t, err)
	return r
}

func TestRunner_Scenarios(t *testing.T) {
	a := newAlert("a", "100", 5, 300)
	b := newAlert("b", "200", -1, 300)
	c := newAlert("c", "300", 9, 300)

	store := newFakeStore(a, b, c)
	browser := &fakeBrowser{prices: map[string]int{"100": 250, "200": 1, "300": 300}}
	n := &fakeNotifier{}

	summary, err := newRunner(t, 2, store, browser.launcher(), n).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Dropped)
	assert.Equal(t, 1, summary.Expired)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Zero(t, summary.Failed)

	assert.Equal(t, []int{250}, store.savesFor("a"))
	assert.Empty(t, store.savesFor("b"))
	assert.Equal(t, []int{300}, store.savesFor("c"))
	assert.Equal(t, []string{"b"}, store.deleted)
	assert.Equal(t, int64(2), browser.calls.Load(), "expired alert must not be fetched")

	events := n.all()
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].AlertID)

	assert.Equal(t, int64(1), browser.closed.Load())
	assert.Equal(t, 1, store.closed)
}

func TestRunner_BoundsConcurrentFetches(t *testing.T) {
	var alerts []model.Alert
	prices := map[string]int{}
	for i := range 5 {
		flight := fmt.Sprint(1000 + i)
		alerts = append(alerts, newAlert(fmt.Sprint("id-", i), flight, i+1, 300))
		prices[flight] = 280
	}
	store := newFakeStore(alerts...)
	browser := &fakeBrowser{prices: prices, delay: 30 * time.Millisecond}

	summary, err := newRunner(t, 2, store, browser.launcher(), &fakeNotifier{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 5, summary.Dropped)
	assert.LessOrEqual(t, browser.highest.Load(), int64(2))
	assert.Equal(t, int64(5), browser.calls.Load())

	for id := range browser.slots {
		assert.True(t, id == 0 || id == 1, "slot id %d out of range", id)
	}
}

func TestRunner_FetchesEarliestTravelDateFirst(t *testing.T) {
	days := []int{7, 2, 11, 4, 1, 9, 3, 12, 5, 8, 6, 10}
	var alerts []model.Alert
	prices := map[string]int{}
	for _, d := range days {
		flight := fmt.Sprintf("%02d", d)
		alerts = append(alerts, newAlert("id-"+flight, flight, d, 300))
		prices[flight] = 300
	}
	store := newFakeStore(alerts...)
	browser := &fakeBrowser{prices: prices}

	summary, err := newRunner(t, 1, store, browser.launcher(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(days), summary.Unchanged)

	want := make([]string, 0, len(days))
	for d := 1; d <= len(days); d++ {
		want = append(want, fmt.Sprintf("%02d", d))
	}
	assert.Equal(t, want, browser.order)
}

func TestRunner_CancelledBeforeSlotFailsLiveAlerts(t *testing.T) {
	store := newFakeStore(
		newAlert("a", "1", 1, 300),
		newAlert("old", "2", -3, 300),
		newAlert("b", "3", 2, 300),
	)
	browser := &fakeBrowser{prices: map[string]int{"1": 100, "3": 100}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newRunner(t, 1, store, browser.launcher(), nil).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Expired)
	assert.Zero(t, browser.calls.Load())
	assert.Equal(t, []string{"old"}, store.deleted)
	assert.Empty(t, store.savesFor("a"))
	assert.Empty(t, store.savesFor("b"))
}

func TestRunner_FetchFailureIsIsolated(t *testing.T) {
	store := newFakeStore(
		newAlert("a", "1", 1, 300),
		newAlert("b", "2", 2, 300),
		newAlert("c", "3", 3, 300),
	)
	browser := &fakeBrowser{
		prices: map[string]int{"1": 200, "3": 300},
		errs:   map[string]error{"2": errScrape},
	}

	summary, err := newRunner(t, 3, store, browser.launcher(), &fakeNotifier{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Dropped)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Empty(t, store.savesFor("b"))
}

func TestRunner_PanicBecomesFailed(t *testing.T) {
	store := newFakeStore(newAlert("a", "1", 1, 300), newAlert("b", "2", 2, 300))
	browser := &fakeBrowser{
		prices: map[string]int{"2": 100},
		panics: map[string]bool{"1": true},
	}

	summary, err := newRunner(t, 1, store, browser.launcher(), &fakeNotifier{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Dropped)
}

func TestRunner_DeltaZeroDoesNotNotify(t *testing.T) {
	store := newFakeStore(newAlert("a", "1", 1, 300))
	browser := &fakeBrowser{prices: map[string]int{"1": 300}}
	n := &fakeNotifier{}

	summary, err := newRunner(t, 1, store, browser.launcher(), n).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Empty(t, n.all())
}

func TestRunner_LaunchFailure(t *testing.T) {
	store := newFakeStore(newAlert("a", "1", 1, 300))

	_, err := newRunner(t, 2, store, failingLauncher(errors.New("no chrome")), nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, checker.ErrSetup)

	var setupErr *checker.SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "launch", setupErr.Stage)
	assert.Equal(t, 1, store.closed, "store must be closed after a setup failure")
}

func TestRunner_LoadFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("connection refused")
	browser := &fakeBrowser{}

	_, err := newRunner(t, 2, store, browser.launcher(), nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, checker.ErrSetup)
	assert.ErrorIs(t, err, store.listErr)

	var setupErr *checker.SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "load", setupErr.Stage)
	assert.Equal(t, int64(1), browser.closed.Load(), "launched browser must be closed")
	assert.Equal(t, 1, store.closed)
	assert.Zero(t, browser.calls.Load())
}

func TestRunner_NoAlerts(t *testing.T) {
	store := newFakeStore()
	browser := &fakeBrowser{}

	summary, err := newRunner(t, 2, store, browser.launcher(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Equal(t, int64(1), browser.closed.Load())
	assert.Equal(t, 1, store.closed)
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := checker.NewRunner(checker.RunnerConfig{Launch: (&fakeBrowser{}).launcher()})
	assert.Error(t, err)

	_, err = checker.NewRunner(checker.RunnerConfig{Store: newFakeStore()})
	assert.Error(t, err)
}
