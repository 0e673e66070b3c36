package model

import (
	"fmt"
	"strings"
	"time"
)

// AlertKind selects how a fare is matched and how the drop message reads.
type AlertKind string

const (
	KindSingleFlight   AlertKind = "SINGLE_FLIGHT"     // One specific flight number
	KindAnyFlightOnDay AlertKind = "ANY_FLIGHT_ON_DAY" // Cheapest flight on the route that day
)

// Valid reports whether k is one of the known alert kinds.
func (k AlertKind) Valid() bool {
	switch k {
	case KindSingleFlight, KindAnyFlightOnDay:
		return true
	}
	return false
}

// ParseAlertKind accepts the stored names as well as the short forms "single" and "day".
func ParseAlertKind(s string) (AlertKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single_flight", "single":
		return KindSingleFlight, nil
	case "any_flight_on_day", "day":
		return KindAnyFlightOnDay, nil
	}
	return "", fmt.Errorf("unknown alert kind %q", s)
}

// DateLayout is the layout used for travel dates in messages and logs.
const DateLayout = "01/02/2006"

// Alert is a standing request to be told when a flight gets cheaper.
type Alert struct {
	ID           string    `json:"id"`
	FlightNumber string    `json:"flight_number,omitempty"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	Date         time.Time `json:"date"`
	Kind         AlertKind `json:"kind"`
	Price        int       `json:"price"`
	LatestPrice  int       `json:"latest_price"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the travel date lies before now.
func (a Alert) Expired(now time.Time) bool {
	return a.Date.Before(now)
}

// FormattedDate renders the travel date as MM/DD/YYYY.
func (a Alert) FormattedDate() string {
	return a.Date.Format(DateLayout)
}

// Label is a short human readable description used in log lines.
func (a Alert) Label() string {
	return fmt.Sprintf("%s #%s %s → %s", a.FormattedDate(), a.FlightNumber, a.Origin, a.Destination)
}

// HasContact reports whether the alert carries at least one contact channel.
func (a Alert) HasContact() bool {
	return a.Email != "" || a.Phone != ""
}

// Validate checks a new alert before it is stored.
func (a Alert) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("invalid alert kind %q", a.Kind)
	}
	if a.Origin == "" || a.Destination == "" {
		return fmt.Errorf("origin and destination are required")
	}
	if a.Date.IsZero() {
		return fmt.Errorf("travel date is required")
	}
	if a.Kind == KindSingleFlight && a.FlightNumber == "" {
		return fmt.Errorf("flight number is required for %s alerts", KindSingleFlight)
	}
	if a.Price <= 0 {
		return fmt.Errorf("price must be positive, got %d", a.Price)
	}
	return nil
}

// FormatPrice renders a whole-dollar price.
func FormatPrice(p int) string {
	return fmt.Sprintf("$%d", p)
}

// DropEvent describes a strict price improvement on one alert.
type DropEvent struct {
	AlertID      string    `json:"alert_id"`
	Kind         AlertKind `json:"kind"`
	FlightNumber string    `json:"flight_number,omitempty"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	Date         time.Time `json:"date"`
	OldPrice     int       `json:"old_price"`
	NewPrice     int       `json:"new_price"`
	Delta        int       `json:"delta"`
}

// NewDropEvent builds the event for alert a observed at newPrice.
func NewDropEvent(a Alert, newPrice int) DropEvent {
	return DropEvent{
		AlertID:      a.ID,
		Kind:         a.Kind,
		FlightNumber: a.FlightNumber,
		Origin:       a.Origin,
		Destination:  a.Destination,
		Date:         a.Date,
		OldPrice:     a.Price,
		NewPrice:     newPrice,
		Delta:        a.Price - newPrice,
	}
}
