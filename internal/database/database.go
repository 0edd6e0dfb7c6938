package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"splashpark/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	ErrSlotConflict           = errors.New("requested time range is not available")
	ErrNotFound               = errors.New("booking not found")
	ErrInvalidTransition      = errors.New("invalid booking status transition")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrPastDate               = errors.New("booking date is in the past")
	ErrDateTooFar             = errors.New("booking date is too far in the future")
	ErrZoneNotFound           = errors.New("zone not found")
)

type DB struct {
	*sql.DB
	mu          sync.RWMutex
	zonesCache  map[int64]models.Zone
	sortedZones []models.Zone
	logger      *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Immediate transactions serialize writers so the in-transaction
	// availability check reads committed state; busy_timeout keeps the
	// losing writer queued instead of failing fast.
	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if logger != nil {
		logger.Info().Str("path", path).Msg("database initialized")
	}

	return &DB{DB: sqlDB, zonesCache: make(map[int64]models.Zone), logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            reference TEXT UNIQUE NOT NULL,
            zone_id INTEGER NOT NULL,
            zone_name TEXT NOT NULL,
            date TEXT NOT NULL,
            start_minute INTEGER NOT NULL,
            end_minute INTEGER NOT NULL,
            duration_hours REAL NOT NULL,
            party_size INTEGER NOT NULL DEFAULT 1,
            customer_name TEXT NOT NULL,
            customer_email TEXT NOT NULL,
            customer_phone TEXT,
            add_ons TEXT,
            coupon_code TEXT,
            subtotal REAL NOT NULL DEFAULT 0,
            add_on_total REAL NOT NULL DEFAULT 0,
            discount REAL NOT NULL DEFAULT 0,
            total REAL NOT NULL DEFAULT 0,
            payment_reference TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            cancel_reason TEXT,
            cancel_actor TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,

		`CREATE TABLE IF NOT EXISTS notify_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            event_kind TEXT NOT NULL,
            booking_id INTEGER NOT NULL DEFAULT 0,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_zone_date ON bookings(zone_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_reference ON bookings(reference)`,
		`CREATE INDEX IF NOT EXISTS idx_notify_queue_status ON notify_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetZones заполняет кэш зон для проверки доступности
func (db *DB) SetZones(zones []models.Zone) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.zonesCache = make(map[int64]models.Zone, len(zones))
	for _, zone := range zones {
		db.zonesCache[zone.ID] = zone
	}

	db.sortedZones = append([]models.Zone(nil), zones...)
	sort.Slice(db.sortedZones, func(i, j int) bool {
		if db.sortedZones[i].SortOrder == db.sortedZones[j].SortOrder {
			return db.sortedZones[i].ID < db.sortedZones[j].ID
		}
		return db.sortedZones[i].SortOrder < db.sortedZones[j].SortOrder
	})
}

func (db *DB) GetZones() []*models.Zone {
	db.mu.RLock()
	defer db.mu.RUnlock()

	zones := make([]*models.Zone, 0, len(db.sortedZones))
	for i := range db.sortedZones {
		zone := db.sortedZones[i]
		zones = append(zones, &zone)
	}
	return zones
}

func (db *DB) GetZoneByID(id int64) (*models.Zone, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	zone, ok := db.zonesCache[id]
	if !ok {
		return nil, false
	}
	return &zone, true
}

func (db *DB) GetZoneByName(name string) (*models.Zone, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, zone := range db.zonesCache {
		if zone.Name == name {
			z := zone
			return &z, true
		}
	}
	return nil, false
}
