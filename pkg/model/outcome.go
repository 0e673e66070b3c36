package model

import (
	"fmt"
	"time"
)

// OutcomeKind classifies the result of checking one alert.
type OutcomeKind int

const (
	OutcomeExpired OutcomeKind = iota
	OutcomeUnchanged
	OutcomeDropped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeExpired:
		return "expired"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeDropped:
		return "dropped"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome is the per-alert result of one batch run. It is never persisted.
type Outcome struct {
	Kind     OutcomeKind
	AlertID  string
	Delta    int
	NewPrice int
	Err      error
}

func Expired(id string) Outcome {
	return Outcome{Kind: OutcomeExpired, AlertID: id}
}

func Unchanged(id string, newPrice int) Outcome {
	return Outcome{Kind: OutcomeUnchanged, AlertID: id, NewPrice: newPrice}
}

func Dropped(id string, delta, newPrice int) Outcome {
	return Outcome{Kind: OutcomeDropped, AlertID: id, Delta: delta, NewPrice: newPrice}
}

func Failed(id string, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, AlertID: id, Err: err}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeDropped:
		return fmt.Sprintf("dropped(%d, %d)", o.Delta, o.NewPrice)
	case OutcomeFailed:
		return fmt.Sprintf("failed(%v)", o.Err)
	}
	return o.Kind.String()
}

// Summary aggregates outcomes of a batch run.
type Summary struct {
	Total     int           `json:"total"`
	Expired   int           `json:"expired"`
	Dropped   int           `json:"dropped"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Summarize counts outcomes by kind.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeExpired:
			s.Expired++
		case OutcomeDropped:
			s.Dropped++
		case OutcomeUnchanged:
			s.Unchanged++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}
