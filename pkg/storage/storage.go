package storage

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
)

// ErrNotFound is returned when an alert ID does not exist.
var ErrNotFound = errors.New("alert not found")

// Storage defines the persistence layer for price alerts.
// Implementations must be safe for concurrent use.
type Storage interface {
	// CreateAlert validates and persists a new alert, assigning an ID if empty.
	CreateAlert(ctx context.Context, alert *model.Alert) error

	// GetAlert retrieves an alert by ID.
	GetAlert(ctx context.Context, id string) (*model.Alert, error)

	// ListAlerts returns every alert, active or not, ordered by travel date.
	ListAlerts(ctx context.Context) ([]model.Alert, error)

	// ListActiveAlerts returns the alerts a batch run should check.
	ListActiveAlerts(ctx context.Context) ([]model.Alert, error)

	// SaveAlert persists the observed LatestPrice of an existing alert. The
	// threshold Price is left alone; only UpdatePrice changes it.
	SaveAlert(ctx context.Context, alert *model.Alert) error

	// UpdatePrice sets the alert threshold price.
	UpdatePrice(ctx context.Context, id string, price int) error

	// DeleteAlert removes an alert.
	DeleteAlert(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
