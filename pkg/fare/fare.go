// Package fare defines the boundary to the live price source.
package fare

import (
	"context"
	"errors"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/session"
)

// ErrNoFare is returned when the price source has no fare matching the query.
var ErrNoFare = errors.New("no matching fare")

// ErrClosed is returned by a browser after Close.
var ErrClosed = errors.New("browser closed")

// Query identifies the fare to look up.
type Query struct {
	Origin       string
	Destination  string
	Date         time.Time
	FlightNumber string
	Kind         model.AlertKind
}

// QueryFor builds the lookup for an alert.
func QueryFor(a model.Alert) Query {
	return Query{
		Origin:       a.Origin,
		Destination:  a.Destination,
		Date:         a.Date,
		FlightNumber: a.FlightNumber,
		Kind:         a.Kind,
	}
}

// Fetcher returns the current price for a query using the session leased by slot.
// Implementations must be safe for concurrent use by distinct slots.
type Fetcher interface {
	FetchPrice(ctx context.Context, slot *session.Slot, q Query) (int, error)
}

// Browser is the process-wide automation resource. It is opened once per
// batch run and closed once when the run ends.
type Browser interface {
	Fetcher
	Close() error
}

// Launcher opens a browser able to serve the given number of concurrent sessions.
type Launcher func(ctx context.Context, sessions int) (Browser, error)
