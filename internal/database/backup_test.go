package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"splashpark/internal/config"
	"splashpark/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupCreatesSnapshot(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	dbPath := filepath.Join(t.TempDir(), "source.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	db.SetZones([]models.Zone{{ID: 1, Name: "Splash Zone A", OpenHour: 10, CloseHour: 18, Capacity: 1}})
	require.NoError(t, db.CreateBookingReserved(context.Background(), testBooking(1, "2025-07-01", 600, 1)))

	storage := t.TempDir()
	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:     true,
		StoragePath: storage,
	}, &logger)

	require.NoError(t, svc.Backup())

	entries, err := os.ReadDir(storage)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Snapshot must be a readable database containing the booking
	snap, err := NewDB(filepath.Join(storage, entries[0].Name()), &logger)
	require.NoError(t, err)
	defer snap.Close()

	count, err := snap.CountOverlapping(context.Background(), 1, "2025-07-01", 600, 660, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBackupDisabledDoesNothing(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	svc := NewBackupService("unused.db", config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Start returns immediately when disabled
	svc.Start(ctx)
}
