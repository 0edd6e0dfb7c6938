package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"splashpark/internal/database"
	"splashpark/internal/domain"
	"splashpark/internal/metrics"
	"splashpark/internal/models"
	"splashpark/internal/worker"
)

// NotifyWorker consumes notify_queue tasks and hands them to the configured
// dispatcher. Tasks are always persisted first; redis is a delivery hint and
// the db poll loop is the source of truth when redis is down.
type NotifyWorker struct {
	db              *database.DB
	dispatcher      domain.NotificationDispatcher
	redis           *redis.Client
	retryPolicy     worker.RetryPolicy
	queue           chan models.NotifyTask
	redisQueueKey   string
	deadLetterKey   string
	pollInterval    time.Duration
	batchSize       int
	dispatchTimeout time.Duration
	logger          zerolog.Logger
}

// NewNotifyWorker builds a worker; zero-valued retry/timeout settings get
// defaults.
func NewNotifyWorker(db *database.DB, dispatcher domain.NotificationDispatcher, redisClient *redis.Client, retry worker.RetryPolicy, dispatchTimeout time.Duration, logger zerolog.Logger) *NotifyWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if dispatchTimeout <= 0 {
		dispatchTimeout = 10 * time.Second
	}

	return &NotifyWorker{
		db:              db,
		dispatcher:      dispatcher,
		redis:           redisClient,
		retryPolicy:     retry,
		queue:           make(chan models.NotifyTask, models.WorkerQueueSize),
		redisQueueKey:   "notify:queue",
		deadLetterKey:   "notify:deadletter",
		pollInterval:    2 * time.Second,
		batchSize:       20,
		dispatchTimeout: dispatchTimeout,
		logger:          logger.With().Str("component", "notify_worker").Logger(),
	}
}

// EnqueueTask persists the task and schedules it via redis or the in-memory
// queue. bookingID may be zero for tasks not tied to a booking (contact,
// waiver confirmations).
func (w *NotifyWorker) EnqueueTask(ctx context.Context, eventKind string, bookingID int64, payload interface{}) error {
	if eventKind == "" {
		return errors.New("event kind is required")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.NotifyTask{
		EventKind: eventKind,
		BookingID: bookingID,
		Payload:   string(payloadBytes),
		Status:    "pending",
		CreatedAt: time.Now(),
	}

	if err := w.db.CreateNotifyTask(ctx, &task); err != nil {
		return fmt.Errorf("persist notify task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	// Fallback to in-memory queue if redis missing or failed.
	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task dropped to polling")
	}

	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("started")
	defer w.logger.Info().Msg("stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingNotifyTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending tasks")
			time.Sleep(w.pollInterval)
			continue
		}
		if len(tasks) == 0 {
			time.Sleep(w.pollInterval)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *NotifyWorker) tryLocalQueue() (models.NotifyTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.NotifyTask{}, false
	}
}

func (w *NotifyWorker) tryRedis(ctx context.Context) (models.NotifyTask, bool) {
	if w.redis == nil {
		return models.NotifyTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.NotifyTask{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		return models.NotifyTask{}, false
	}
	if len(res) != 2 {
		return models.NotifyTask{}, false
	}
	var task models.NotifyTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.NotifyTask{}, false
	}
	return task, true
}

func (w *NotifyWorker) processTask(ctx context.Context, task *models.NotifyTask) {
	dispatchCtx, cancel := context.WithTimeout(ctx, w.dispatchTimeout)
	results, err := w.dispatcher.Dispatch(dispatchCtx, task.EventKind, []byte(task.Payload))
	cancel()

	if err == nil {
		for _, r := range results {
			if r.Err != nil {
				err = fmt.Errorf("recipient %s: %w", r.Recipient, r.Err)
				break
			}
		}
	}

	if err != nil {
		metrics.IncNotifyFailure(task.EventKind)
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateNotifyTaskStatus(ctx, task.ID, "completed", "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
	}
}

func (w *NotifyWorker) retryOrFail(ctx context.Context, task *models.NotifyTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		if err := w.db.UpdateNotifyTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	if err := w.db.UpdateNotifyTaskStatus(ctx, task.ID, "retry", cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
}

func (w *NotifyWorker) pushRedis(ctx context.Context, task models.NotifyTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *NotifyWorker) pushDeadLetter(ctx context.Context, task *models.NotifyTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}
