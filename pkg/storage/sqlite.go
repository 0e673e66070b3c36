package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/fare-guardian/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets the deep-link server read while a batch run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

const alertColumns = `id, flight_number, origin, destination, travel_date, kind, price, latest_price, email, phone, active, created_at, updated_at`

func (s *SQLite) CreateAlert(ctx context.Context, alert *model.Alert) error {
	if err := alert.Validate(); err != nil {
		return fmt.Errorf("validate alert: %w", err)
	}
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	alert.Active = true

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (`+alertColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.FlightNumber, alert.Origin, alert.Destination,
		alert.Date.UTC(), string(alert.Kind), alert.Price, alert.LatestPrice,
		alert.Email, alert.Phone, alert.Active, alert.CreatedAt, alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLite) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (s *SQLite) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM alerts ORDER BY travel_date`)
}

func (s *SQLite) ListActiveAlerts(ctx context.Context) ([]model.Alert, error) {
	return s.queryAlerts(ctx, `SELECT `+alertColumns+` FROM alerts WHERE active = 1 ORDER BY travel_date`)
}

func (s *SQLite) queryAlerts(ctx context.Context, query string, args ...any) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *SQLite) SaveAlert(ctx context.Context, alert *model.Alert) error {
	alert.UpdatedAt = time.Now().UTC()
	return s.execOne(ctx, alert.ID, "save alert",
		`UPDATE alerts SET latest_price = ?, updated_at = ? WHERE id = ?`,
		alert.LatestPrice, alert.UpdatedAt, alert.ID,
	)
}

func (s *SQLite) UpdatePrice(ctx context.Context, id string, price int) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %d", price)
	}
	return s.execOne(ctx, id, "update price",
		`UPDATE alerts SET price = ?, updated_at = ? WHERE id = ?`,
		price, time.Now().UTC(), id,
	)
}

func (s *SQLite) DeleteAlert(ctx context.Context, id string) error {
	return s.execOne(ctx, id, "delete alert", `DELETE FROM alerts WHERE id = ?`, id)
}

// execOne runs a statement that must touch exactly the row identified by id.
func (s *SQLite) execOne(ctx context.Context, id, op, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %q: %w", op, id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*model.Alert, error) {
	var a model.Alert
	var kind string
	if err := row.Scan(&a.ID, &a.FlightNumber, &a.Origin, &a.Destination, &a.Date, &kind,
		&a.Price, &a.LatestPrice, &a.Email, &a.Phone, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Kind = model.AlertKind(kind)
	return &a, nil
}
