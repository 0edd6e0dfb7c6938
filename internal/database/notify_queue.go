package database

import (
	"context"
	"fmt"
	"time"

	"splashpark/internal/models"
)

func (db *DB) CreateNotifyTask(ctx context.Context, task *models.NotifyTask) error {
	query := `INSERT INTO notify_queue (event_kind, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		task.EventKind,
		task.BookingID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notify task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now

	return nil
}

func (db *DB) GetPendingNotifyTasks(ctx context.Context, limit int) ([]models.NotifyTask, error) {
	query := `SELECT id, event_kind, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM notify_queue
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	rows, err := db.QueryContext(ctx, query, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notify tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.NotifyTask
	for rows.Next() {
		var t models.NotifyTask
		err := rows.Scan(
			&t.ID, &t.EventKind, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount, &t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notify task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (db *DB) UpdateNotifyTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := time.Now()

	switch status {
	case "retry":
		query = `UPDATE notify_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	case "completed", "failed":
		query = `UPDATE notify_queue SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, &now, id}
	default:
		query = `UPDATE notify_queue SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	}

	_, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update notify task status: %w", err)
	}
	return nil
}

func (db *DB) GetFailedNotifyTasks(ctx context.Context) ([]models.NotifyTask, error) {
	query := `SELECT id, event_kind, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM notify_queue WHERE status = 'failed' ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed notify tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.NotifyTask
	for rows.Next() {
		var t models.NotifyTask
		err := rows.Scan(
			&t.ID, &t.EventKind, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount, &t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notify task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
