package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by LoadSeedFile.
type SeedFile struct {
	Alerts []SeedAlert `yaml:"alerts"`
}

// SeedAlert is one alert in a seed file. Date is YYYY-MM-DD and Kind accepts
// the short names "single" and "day".
type SeedAlert struct {
	FlightNumber string `yaml:"flight_number"`
	Origin       string `yaml:"origin"`
	Destination  string `yaml:"destination"`
	Date         string `yaml:"date"`
	Kind         string `yaml:"kind"`
	Price        int    `yaml:"price"`
	Email        string `yaml:"email"`
	Phone        string `yaml:"phone"`
}

// LoadSeedFile reads a YAML seed file and returns validated alerts.
func LoadSeedFile(path string) ([]model.Alert, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed parses YAML seed data.
func ParseSeed(data []byte) ([]model.Alert, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	if len(f.Alerts) == 0 {
		return nil, fmt.Errorf("seed data: no alerts defined")
	}

	alerts := make([]model.Alert, 0, len(f.Alerts))
	for i, s := range f.Alerts {
		kind, err := model.ParseAlertKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("seed alert %d: %w", i+1, err)
		}
		date, err := time.Parse("2006-01-02", s.Date)
		if err != nil {
			return nil, fmt.Errorf("seed alert %d: parse date: %w", i+1, err)
		}
		a := model.Alert{
			FlightNumber: s.FlightNumber,
			Origin:       s.Origin,
			Destination:  s.Destination,
			Date:         date,
			Kind:         kind,
			Price:        s.Price,
			Email:        s.Email,
			Phone:        s.Phone,
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("seed alert %d: %w", i+1, err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// Import stores every alert and returns how many were created.
func Import(ctx context.Context, store Storage, alerts []model.Alert) (int, error) {
	for i := range alerts {
		if err := store.CreateAlert(ctx, &alerts[i]); err != nil {
			return i, fmt.Errorf("import alert %d: %w", i+1, err)
		}
	}
	return len(alerts), nil
}
