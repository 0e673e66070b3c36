package notify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
)

// ChangePriceURL builds the link a traveler taps to lower the alert threshold.
func ChangePriceURL(baseURL, alertID string, price int) string {
	return fmt.Sprintf("%s/%s/change-price?price=%d",
		strings.TrimRight(baseURL, "/"), url.PathEscape(alertID), price)
}

// Compose renders the subject and body for a drop event.
func Compose(ev model.DropEvent, baseURL string) Message {
	date := ev.Date.Format(model.DateLayout)
	was, now := model.FormatPrice(ev.OldPrice), model.FormatPrice(ev.NewPrice)

	var lead string
	switch ev.Kind {
	case model.KindSingleFlight:
		lead = fmt.Sprintf("WN flight #%s %s to %s on %s was %s, is now %s. ",
			ev.FlightNumber, ev.Origin, ev.Destination, date, was, now)
	case model.KindAnyFlightOnDay:
		lead = fmt.Sprintf("A cheaper Southwest flight on %s %s to %s was found! Was %s, is now %s. ",
			date, ev.Origin, ev.Destination, was, now)
	default:
		lead = fmt.Sprintf("Southwest fare %s to %s on %s was %s, is now %s. ",
			ev.Origin, ev.Destination, date, was, now)
	}

	return Message{
		Subject: fmt.Sprintf("✈ Southwest Price Drop Alert: %s → %s", was, now),
		Body: lead + "\n\nOnce rebooked, tap link to lower alert threshold: " +
			ChangePriceURL(baseURL, ev.AlertID, ev.NewPrice),
	}
}
