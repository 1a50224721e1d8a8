package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/database"
	"github.com/Alkitu/alkitu-template-sub002/internal/domain"
	"github.com/Alkitu/alkitu-template-sub002/internal/metrics"
	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	TaskNotify       = "notify"
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
)

// taskPayload is persisted in SyncTask.Payload as JSON.
type taskPayload struct {
	RequestID int64           `json:"request_id,omitempty"`
	Request   *models.Request `json:"request,omitempty"`
	Status    string          `json:"status,omitempty"`
	ChatID    int64           `json:"chat_id,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// SyncWorker consumes sync_queue tasks: notification deliveries and
// spreadsheet mirror updates. Tasks survive restarts through the DB queue;
// redis gives low-latency pickup when available, with an in-memory channel
// as last resort.
type SyncWorker struct {
	db            *database.DB
	sheets        domain.SheetsWriter
	notifier      domain.Notifier
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *log.Logger
}

// NewSyncWorker builds a worker with sane defaults. sheets and notifier may
// be nil when the corresponding feature is disabled; tasks of that kind then
// fail into the dead letter.
func NewSyncWorker(db *database.DB, sheets domain.SheetsWriter, notifier domain.Notifier, redisClient *redis.Client, retry RetryPolicy, logger *log.Logger) *SyncWorker {
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
	if logger == nil {
		logger = log.Default()
	}

	return &SyncWorker{
		db:            db,
		sheets:        sheets,
		notifier:      notifier,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: "sync:queue",
		deadLetterKey: "sync:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
	}
}

// EnqueueNotify schedules delivery of a persisted notification to a chat.
func (w *SyncWorker) EnqueueNotify(ctx context.Context, n *models.Notification, chatID int64) error {
	if chatID == 0 {
		return errors.New("chat id is required")
	}
	return w.enqueue(ctx, TaskNotify, taskPayload{
		ChatID:  chatID,
		Message: n.Message,
	}, 0)
}

// EnqueueRequestUpsert schedules a spreadsheet mirror of the request row.
func (w *SyncWorker) EnqueueRequestUpsert(ctx context.Context, req *models.Request) error {
	if req == nil || req.ID == 0 {
		return errors.New("request id is required")
	}
	return w.enqueue(ctx, TaskUpsert, taskPayload{
		RequestID: req.ID,
		Request:   req,
	}, req.ID)
}

// EnqueueStatusUpdate schedules a status-only mirror update.
func (w *SyncWorker) EnqueueStatusUpdate(ctx context.Context, requestID int64, status models.Status) error {
	if requestID == 0 {
		return errors.New("request id is required")
	}
	return w.enqueue(ctx, TaskUpdateStatus, taskPayload{
		RequestID: requestID,
		Status:    string(status),
	}, requestID)
}

func (w *SyncWorker) enqueue(ctx context.Context, taskType string, payload taskPayload, requestID int64) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	syncTask := models.SyncTask{
		TaskType:  taskType,
		RequestID: requestID,
		Payload:   string(payloadBytes),
		Status:    "pending",
		CreatedAt: time.Now(),
	}

	if err := w.db.CreateSyncTask(ctx, &syncTask); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, syncTask); err != nil {
			w.logger.Printf("sync_worker: redis push failed, fallback to memory queue: %v", err)
		} else {
			return nil
		}
	}

	// Fallback to in-memory queue if redis missing or failed.
	select {
	case w.queue <- syncTask:
	default:
		w.logger.Printf("sync_worker: in-memory queue full, task %d dropped to polling", syncTask.ID)
	}

	return nil
}

// Start launches main loop; stops when ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Printf("sync_worker: started")
	defer w.logger.Printf("sync_worker: stopped")

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

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Printf("sync_worker: fetch pending: %v", err)
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

func (w *SyncWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SyncWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Printf("sync_worker: redis BRPOP error: %v", err)
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Printf("sync_worker: decode redis task: %v", err)
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SyncWorker) processTask(ctx context.Context, task *models.SyncTask) {
	payload, err := w.decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if task.TaskType == TaskNotify {
		metrics.IncNotification("delivered")
	}

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "completed", "", nil); err != nil {
		w.logger.Printf("sync_worker: mark completed %d: %v", task.ID, err)
	}
}

func (w *SyncWorker) handleTask(ctx context.Context, taskType string, payload taskPayload) error {
	switch taskType {
	case TaskNotify:
		if w.notifier == nil {
			return errors.New("notifier not configured")
		}
		if payload.ChatID == 0 {
			return errors.New("chat id missing")
		}
		return w.notifier.Deliver(ctx, payload.ChatID, payload.Message)
	case TaskUpsert:
		if w.sheets == nil {
			return errors.New("sheets writer not configured")
		}
		if payload.Request == nil {
			return errors.New("request payload missing")
		}
		return w.sheets.UpsertRequest(ctx, payload.Request)
	case TaskUpdateStatus:
		if w.sheets == nil {
			return errors.New("sheets writer not configured")
		}
		if payload.RequestID == 0 || payload.Status == "" {
			return errors.New("request id or status missing")
		}
		return w.sheets.UpdateRequestStatus(ctx, payload.RequestID, models.Status(payload.Status))
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		if task.TaskType == TaskNotify {
			metrics.IncNotification("failed")
		}
		if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
			w.logger.Printf("sync_worker: mark failed %d: %v", task.ID, err)
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "retry", cause.Error(), &nextTime); err != nil {
		w.logger.Printf("sync_worker: mark retry %d: %v", task.ID, err)
	}
}

func (w *SyncWorker) failTask(ctx context.Context, task *models.SyncTask, err error) {
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", err.Error(), nil); err != nil {
		w.logger.Printf("sync_worker: mark failed %d: %v", task.ID, err)
	}
	w.pushDeadLetter(ctx, task)
}

func (w *SyncWorker) decodePayload(raw string) (taskPayload, error) {
	var payload taskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (w *SyncWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *SyncWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Printf("sync_worker: encode deadletter %d: %v", task.ID, err)
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Printf("sync_worker: deadletter push %d: %v", task.ID, err)
	}
}
