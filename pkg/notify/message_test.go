package notify_test

import (
	"testing"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/notify"
	"github.com/stretchr/testify/assert"
)

func dropEvent(kind model.AlertKind) model.DropEvent {
	return model.DropEvent{
		AlertID:      "abc",
		Kind:         kind,
		FlightNumber: "1234",
		Origin:       "DAL",
		Destination:  "HOU",
		Date:         time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		OldPrice:     300,
		NewPrice:     250,
		Delta:        50,
	}
}

func TestChangePriceURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/abc/change-price?price=250",
		notify.ChangePriceURL("http://localhost:8080/", "abc", 250))
	assert.Equal(t, "https://fares.example.com/a%2Fb/change-price?price=9",
		notify.ChangePriceURL("https://fares.example.com", "a/b", 9))
}

func TestCompose_SingleFlight(t *testing.T) {
	msg := notify.Compose(dropEvent(model.KindSingleFlight), "http://localhost:8080")

	assert.Equal(t, "✈ Southwest Price Drop Alert: $300 → $250", msg.Subject)
	assert.Equal(t,
		"WN flight #1234 DAL to HOU on 05/01/2026 was $300, is now $250. "+
			"\n\nOnce rebooked, tap link to lower alert threshold: "+
			"http://localhost:8080/abc/change-price?price=250",
		msg.Body)
}

func TestCompose_AnyFlightOnDay(t *testing.T) {
	msg := notify.Compose(dropEvent(model.KindAnyFlightOnDay), "http://localhost:8080")

	assert.Equal(t, "✈ Southwest Price Drop Alert: $300 → $250", msg.Subject)
	assert.Contains(t, msg.Body,
		"A cheaper Southwest flight on 05/01/2026 DAL to HOU was found! Was $300, is now $250. ")
	assert.NotContains(t, msg.Body, "#1234")
	assert.Contains(t, msg.Body, "/abc/change-price?price=250")
}
