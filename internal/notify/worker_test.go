package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"splashpark/internal/database"
	"splashpark/internal/domain"
	"splashpark/internal/models"
	"splashpark/internal/worker"
)

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	dispatcher := &fakeDispatcher{}
	nw := NewNotifyWorker(db, dispatcher, nil, worker.RetryPolicy{}, 0, testLogger())

	ctx := context.Background()
	payload := map[string]interface{}{"booking_id": 1, "zone_name": "Splash Zone A"}
	if err := nw.EnqueueTask(ctx, models.EventBookingCreated, 1, payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := nw.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	nw.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != "completed" {
		t.Fatalf("expected status=completed, got %s", status)
	}
	if retryCount != 0 {
		t.Fatalf("expected retry_count=0, got %d", retryCount)
	}
	if nextRetry.Valid {
		t.Fatalf("expected next_retry_at NULL on success")
	}
	if dispatcher.calls != 1 {
		t.Fatalf("expected dispatch call, got %d", dispatcher.calls)
	}
	if dispatcher.lastKind != models.EventBookingCreated {
		t.Fatalf("expected kind %s, got %s", models.EventBookingCreated, dispatcher.lastKind)
	}
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	dispatcher := &fakeDispatcher{err: errors.New("boom")}
	nw := NewNotifyWorker(db, dispatcher, nil, worker.RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, 0, testLogger())

	ctx := context.Background()
	if err := nw.EnqueueTask(ctx, models.EventBookingCancelled, 2, map[string]int{"booking_id": 2}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := nw.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	nw.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != "retry" {
		t.Fatalf("expected status=retry, got %s", status)
	}
	if retryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", retryCount)
	}
	if !nextRetry.Valid || nextRetry.Time.Before(time.Now()) {
		t.Fatalf("expected next_retry_at in future, got %v", nextRetry)
	}
}

func TestProcessTaskFail(t *testing.T) {
	db := newTestDB(t)
	dispatcher := &fakeDispatcher{err: errors.New("fatal")}
	nw := NewNotifyWorker(db, dispatcher, nil, worker.RetryPolicy{MaxRetries: 1}, 0, testLogger())

	ctx := context.Background()
	nw.EnqueueTask(ctx, models.EventContact, 0, map[string]string{"email": "a@b.c"})
	task, _ := nw.tryLocalQueue()
	nw.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != "failed" {
		t.Fatalf("expected status=failed, got %s", status)
	}
}

func TestProcessTaskRecipientFailureRetries(t *testing.T) {
	db := newTestDB(t)
	dispatcher := &fakeDispatcher{results: []domain.RecipientResult{
		{Recipient: "ok@example.com"},
		{Recipient: "bad@example.com", Err: errors.New("bounced")},
	}}
	nw := NewNotifyWorker(db, dispatcher, nil, worker.RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, 0, testLogger())

	ctx := context.Background()
	nw.EnqueueTask(ctx, models.EventWaiverSigned, 0, map[string]string{"name": "tester"})
	task, _ := nw.tryLocalQueue()
	nw.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != "retry" {
		t.Fatalf("expected status=retry on partial delivery, got %s", status)
	}
}

func TestEnqueueTaskValidation(t *testing.T) {
	db := newTestDB(t)
	nw := NewNotifyWorker(db, &fakeDispatcher{}, nil, worker.RetryPolicy{}, 0, testLogger())

	if err := nw.EnqueueTask(context.Background(), "", 1, nil); err == nil {
		t.Fatalf("expected error for empty event kind")
	}
}

func TestEnqueueTaskRedisRoundtrip(t *testing.T) {
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	dispatcher := &fakeDispatcher{}
	nw := NewNotifyWorker(db, dispatcher, client, worker.RetryPolicy{}, 0, testLogger())

	ctx := context.Background()
	if err := nw.EnqueueTask(ctx, models.EventBookingCreated, 5, map[string]int{"booking_id": 5}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Task must land in redis, not the local fallback queue.
	if _, ok := nw.tryLocalQueue(); ok {
		t.Fatalf("expected empty local queue when redis is up")
	}

	raw, err := client.RPop(ctx, nw.redisQueueKey).Result()
	if err != nil {
		t.Fatalf("rpop: %v", err)
	}
	var task models.NotifyTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.EventKind != models.EventBookingCreated || task.BookingID != 5 {
		t.Fatalf("unexpected task: %+v", task)
	}

	nw.processTask(ctx, &task)
	if dispatcher.calls != 1 {
		t.Fatalf("expected dispatch call, got %d", dispatcher.calls)
	}
}

func TestFailedTaskLandsInDeadLetter(t *testing.T) {
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	dispatcher := &fakeDispatcher{err: errors.New("fatal")}
	nw := NewNotifyWorker(db, dispatcher, client, worker.RetryPolicy{MaxRetries: 1}, 0, testLogger())

	ctx := context.Background()
	nw.EnqueueTask(ctx, models.EventRequest, 0, map[string]string{"subject": "birthday"})

	raw, err := client.RPop(ctx, nw.redisQueueKey).Result()
	if err != nil {
		t.Fatalf("rpop: %v", err)
	}
	var task models.NotifyTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	nw.processTask(ctx, &task)

	n, err := client.LLen(ctx, nw.deadLetterKey).Result()
	if err != nil {
		t.Fatalf("llen: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deadletter entry, got %d", n)
	}
}

// Helpers

type fakeDispatcher struct {
	err      error
	results  []domain.RecipientResult
	calls    int
	lastKind string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, eventKind string, _ []byte) ([]domain.RecipientResult, error) {
	f.calls++
	f.lastKind = eventKind
	return f.results, f.err
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.db")
	logger := testLogger()
	db, err := database.NewDB(path, &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loadTaskStatus(t *testing.T, db *database.DB, id int64) (status string, retryCount int, nextRetry sql.NullTime) {
	t.Helper()
	row := db.QueryRowContext(context.Background(), `SELECT status, retry_count, next_retry_at FROM notify_queue WHERE id = ?`, id)
	if err := row.Scan(&status, &retryCount, &nextRetry); err != nil {
		t.Fatalf("scan task: %v", err)
	}
	return status, retryCount, nextRetry
}
