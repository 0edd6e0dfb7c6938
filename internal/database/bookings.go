package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"splashpark/internal/models"
)

const bookingColumns = `id, reference, zone_id, zone_name, date, start_minute, end_minute,
	                 duration_hours, party_size, customer_name, customer_email, customer_phone,
	                 add_ons, coupon_code, subtotal, add_on_total, discount, total,
	                 payment_reference, status, cancel_reason, cancel_actor,
	                 created_at, updated_at, version`

// CountOverlapping returns the number of non-cancelled bookings for the zone
// and date whose half-open range [start_minute, end_minute) intersects the
// given one. Ranges [a,b) and [c,d) overlap iff a < d AND c < b.
func (db *DB) CountOverlapping(ctx context.Context, zoneID int64, date string, startMinute, endMinute int, excludeID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE zone_id = ? AND date = ? AND status != ?
              AND start_minute < ? AND ? < end_minute AND id != ?`
	var count int
	err := db.QueryRowContext(ctx, query, zoneID, date, models.StatusCancelled,
		endMinute, startMinute, excludeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

// CreateBookingReserved inserts the booking with the availability check and
// insert in a single transaction. Two concurrent conflicting creates yield
// exactly one success; the loser gets ErrSlotConflict.
func (db *DB) CreateBookingReserved(ctx context.Context, booking *models.Booking) error {
	zone, ok := db.GetZoneByID(booking.ZoneID)
	if !ok {
		return ErrZoneNotFound
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Check availability inside transaction
	var overlapping int
	queryCount := `SELECT COUNT(*) FROM bookings
              WHERE zone_id = ? AND date = ? AND status != ?
              AND start_minute < ? AND ? < end_minute`
	err = tx.QueryRowContext(ctx, queryCount, booking.ZoneID, booking.Date,
		models.StatusCancelled, booking.EndMinute, booking.StartMinute).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}

	if overlapping >= int(zone.Capacity) {
		return ErrSlotConflict
	}

	addOns, err := encodeAddOns(booking.AddOns)
	if err != nil {
		return err
	}

	// 2. Create booking
	queryInsert := `INSERT INTO bookings (
				reference, zone_id, zone_name, date, start_minute, end_minute,
				duration_hours, party_size, customer_name, customer_email, customer_phone,
				add_ons, coupon_code, subtotal, add_on_total, discount, total,
				payment_reference, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, queryInsert,
		booking.Reference,
		booking.ZoneID,
		booking.ZoneName,
		booking.Date,
		booking.StartMinute,
		booking.EndMinute,
		booking.DurationHours,
		booking.PartySize,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.CustomerPhone,
		addOns,
		booking.CouponCode,
		booking.Subtotal,
		booking.AddOnTotal,
		booking.Discount,
		booking.Total,
		booking.PaymentRef,
		models.StatusPending,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.Status = models.StatusPending
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return db.scanBooking(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = ?`
	return db.scanBooking(db.QueryRowContext(ctx, query, ref))
}

// UpdateBookingStatusWithVersion moves the booking from one status to
// another under an optimistic version check. The from-status predicate makes
// the state machine transition atomic at the persistence boundary.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, from, to string) error {
	if !models.CanTransition(from, to) {
		return ErrInvalidTransition
	}

	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, to, time.Now(), id, fromVersion, from)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return db.diagnoseUpdateFailure(ctx, id, to)
	}
	return nil
}

// UpdateBookingPayment confirms a pending booking and stores the payment
// reference. An empty reference is the zero-cost case; the caller decides.
func (db *DB) UpdateBookingPayment(ctx context.Context, id, fromVersion int64, paymentRef string) error {
	query := `UPDATE bookings SET status = ?, payment_reference = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, models.StatusConfirmed, paymentRef, time.Now(),
		id, fromVersion, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return db.diagnoseUpdateFailure(ctx, id, models.StatusConfirmed)
	}
	return nil
}

// CancelBookingWithVersion cancels from pending or confirmed and records the
// reason and actor. Cancelled is terminal.
func (db *DB) CancelBookingWithVersion(ctx context.Context, id, fromVersion int64, reason, actor string) error {
	query := `UPDATE bookings SET status = ?, cancel_reason = ?, cancel_actor = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status IN (?, ?)`
	result, err := db.ExecContext(ctx, query, models.StatusCancelled, reason, actor, time.Now(),
		id, fromVersion, models.StatusPending, models.StatusConfirmed)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return db.diagnoseUpdateFailure(ctx, id, models.StatusCancelled)
	}
	return nil
}

// UpdateBookingSlotReserved applies an admin patch that may move the booking
// to another zone, date or time range. The overlap check excludes the
// booking itself and runs in the same transaction as the update.
func (db *DB) UpdateBookingSlotReserved(ctx context.Context, booking *models.Booking, fromVersion int64) error {
	zone, ok := db.GetZoneByID(booking.ZoneID)
	if !ok {
		return ErrZoneNotFound
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var overlapping int
	queryCount := `SELECT COUNT(*) FROM bookings
              WHERE zone_id = ? AND date = ? AND status != ?
              AND start_minute < ? AND ? < end_minute AND id != ?`
	err = tx.QueryRowContext(ctx, queryCount, booking.ZoneID, booking.Date,
		models.StatusCancelled, booking.EndMinute, booking.StartMinute, booking.ID).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}

	if overlapping >= int(zone.Capacity) {
		return ErrSlotConflict
	}

	addOns, err := encodeAddOns(booking.AddOns)
	if err != nil {
		return err
	}

	now := time.Now()
	queryUpdate := `UPDATE bookings SET
				zone_id = ?, zone_name = ?, date = ?, start_minute = ?, end_minute = ?,
				duration_hours = ?, party_size = ?, customer_name = ?, customer_email = ?,
				customer_phone = ?, add_ons = ?, coupon_code = ?,
				subtotal = ?, add_on_total = ?, discount = ?, total = ?,
				version = version + 1, updated_at = ?
			WHERE id = ? AND version = ? AND status != ?`
	result, err := tx.ExecContext(ctx, queryUpdate,
		booking.ZoneID,
		booking.ZoneName,
		booking.Date,
		booking.StartMinute,
		booking.EndMinute,
		booking.DurationHours,
		booking.PartySize,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.CustomerPhone,
		addOns,
		booking.CouponCode,
		booking.Subtotal,
		booking.AddOnTotal,
		booking.Discount,
		booking.Total,
		now,
		booking.ID,
		fromVersion,
		models.StatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking in tx: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, getErr := db.GetBooking(ctx, booking.ID)
		if getErr != nil {
			return ErrNotFound
		}
		if existing.Status == models.StatusCancelled {
			return ErrInvalidTransition
		}
		return ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking update: %w", err)
	}

	booking.Version = fromVersion + 1
	booking.UpdatedAt = now
	return nil
}

// GetBookingsForDay returns non-cancelled bookings for a zone and date.
func (db *DB) GetBookingsForDay(ctx context.Context, zoneID int64, date string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE zone_id = ? AND date = ? AND status != ? ORDER BY start_minute ASC`
	rows, err := db.QueryContext(ctx, query, zoneID, date, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings for day: %w", err)
	}
	defer rows.Close()

	return db.scanBookings(rows)
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, startDate, endDate string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE date >= ? AND date <= ? ORDER BY date ASC, start_minute ASC`
	rows, err := db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	return db.scanBookings(rows)
}

func (db *DB) GetDailyBookings(ctx context.Context, startDate, endDate string) (map[string][]*models.Booking, error) {
	bookings, err := db.GetBookingsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	daily := make(map[string][]*models.Booking)
	for _, b := range bookings {
		daily[b.Date] = append(daily[b.Date], b)
	}
	return daily, nil
}

func (db *DB) diagnoseUpdateFailure(ctx context.Context, id int64, target string) error {
	booking, err := db.GetBooking(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if !models.CanTransition(booking.Status, target) {
		return ErrInvalidTransition
	}
	return ErrConcurrentModification
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var addOns, couponCode, paymentRef, phone, cancelReason, cancelActor sql.NullString
	err := row.Scan(
		&b.ID, &b.Reference, &b.ZoneID, &b.ZoneName, &b.Date, &b.StartMinute, &b.EndMinute,
		&b.DurationHours, &b.PartySize, &b.CustomerName, &b.CustomerEmail, &phone,
		&addOns, &couponCode, &b.Subtotal, &b.AddOnTotal, &b.Discount, &b.Total,
		&paymentRef, &b.Status, &cancelReason, &cancelActor,
		&b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	b.CustomerPhone = phone.String
	b.CouponCode = couponCode.String
	b.PaymentRef = paymentRef.String
	b.CancelReason = cancelReason.String
	b.CancelActor = cancelActor.String

	if addOns.String != "" {
		if err := json.Unmarshal([]byte(addOns.String), &b.AddOns); err != nil {
			return nil, fmt.Errorf("failed to decode add_ons for booking %d: %w", b.ID, err)
		}
	}
	return b, nil
}

func (db *DB) scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		b, err := db.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func encodeAddOns(addOns []string) (string, error) {
	if len(addOns) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(addOns)
	if err != nil {
		return "", fmt.Errorf("failed to encode add_ons: %w", err)
	}
	return string(raw), nil
}
