package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newAlert(flight string, daysOut int, price int) *model.Alert {
	return &model.Alert{
		FlightNumber: flight,
		Origin:       "DAL",
		Destination:  "HOU",
		Date:         time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, daysOut),
		Kind:         model.KindSingleFlight,
		Price:        price,
		Email:        "traveler@example.com",
	}
}

func TestSQLite_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := newAlert("1234", 0, 300)
	require.NoError(t, db.CreateAlert(ctx, a))
	assert.NotEmpty(t, a.ID)
	assert.True(t, a.Active)
	assert.False(t, a.CreatedAt.IsZero())

	got, err := db.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "1234", got.FlightNumber)
	assert.Equal(t, model.KindSingleFlight, got.Kind)
	assert.Equal(t, 300, got.Price)
	assert.Equal(t, "traveler@example.com", got.Email)
	assert.True(t, got.Active)
	assert.True(t, a.Date.Equal(got.Date))
}

func TestSQLite_CreateAlert_Invalid(t *testing.T) {
	db := newTestDB(t)

	a := newAlert("", 0, 300)
	err := db.CreateAlert(context.Background(), a)
	assert.Error(t, err)
	assert.Empty(t, a.ID)
}

func TestSQLite_GetAlert_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetAlert(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLite_ListActiveAlerts_OrderedByDate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, a := range []*model.Alert{
		newAlert("3", 10, 100),
		newAlert("1", -5, 100),
		newAlert("2", 3, 100),
	} {
		require.NoError(t, db.CreateAlert(ctx, a))
	}

	list, err := db.ListActiveAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "1", list[0].FlightNumber)
	assert.Equal(t, "2", list[1].FlightNumber)
	assert.Equal(t, "3", list[2].FlightNumber)

	all, err := db.ListAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLite_SaveAlert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := newAlert("1234", 0, 300)
	require.NoError(t, db.CreateAlert(ctx, a))

	a.LatestPrice = 250
	require.NoError(t, db.SaveAlert(ctx, a))

	got, err := db.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 250, got.LatestPrice)
	assert.Equal(t, 300, got.Price)
}

func TestSQLite_SaveAlert_KeepsThresholdChangedMeanwhile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateAlert(ctx, newAlert("1234", 0, 300)))
	listed, err := db.ListActiveAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	snapshot := listed[0]

	// The traveler lowers the threshold while a batch holds the old snapshot.
	require.NoError(t, db.UpdatePrice(ctx, snapshot.ID, 200))

	snapshot.LatestPrice = 250
	require.NoError(t, db.SaveAlert(ctx, &snapshot))

	got, err := db.GetAlert(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, got.Price)
	assert.Equal(t, 250, got.LatestPrice)
}

func TestSQLite_SaveAlert_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.SaveAlert(context.Background(), &model.Alert{ID: "missing", LatestPrice: 10})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLite_UpdatePrice(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := newAlert("1234", 0, 300)
	require.NoError(t, db.CreateAlert(ctx, a))

	require.NoError(t, db.UpdatePrice(ctx, a.ID, 240))
	got, err := db.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 240, got.Price)

	assert.Error(t, db.UpdatePrice(ctx, a.ID, 0))
	assert.ErrorIs(t, db.UpdatePrice(ctx, "missing", 100), storage.ErrNotFound)
}

func TestSQLite_DeleteAlert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := newAlert("1234", 0, 300)
	require.NoError(t, db.CreateAlert(ctx, a))

	require.NoError(t, db.DeleteAlert(ctx, a.ID))
	_, err := db.GetAlert(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, db.DeleteAlert(ctx, a.ID), storage.ErrNotFound)
}

func TestSQLite_MigrationIdempotency(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db1, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, db1.CreateAlert(context.Background(), newAlert("1", 0, 100)))
	db1.Close()

	db2, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	list, err := db2.ListAlerts(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
