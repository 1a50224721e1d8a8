package worker

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/database"
	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"github.com/rs/zerolog"
)

type fakeSheets struct {
	upserts  []int64
	statuses map[int64]models.Status
	err      error
}

func (f *fakeSheets) UpsertRequest(ctx context.Context, req *models.Request) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, req.ID)
	return nil
}

func (f *fakeSheets) UpdateRequestStatus(ctx context.Context, requestID int64, status models.Status) error {
	if f.err != nil {
		return f.err
	}
	if f.statuses == nil {
		f.statuses = make(map[int64]models.Status)
	}
	f.statuses[requestID] = status
	return nil
}

type fakeNotifier struct {
	delivered []string
	err       error
}

func (f *fakeNotifier) Deliver(ctx context.Context, chatID int64, message string) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, message)
	return nil
}

func newWorkerDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loadTaskStatus(t *testing.T, db *database.DB, id int64) (string, int, string) {
	t.Helper()
	var status, lastError string
	var retryCount int
	err := db.QueryRowContext(context.Background(),
		`SELECT status, retry_count, COALESCE(last_error, '') FROM sync_queue WHERE id = ?`, id,
	).Scan(&status, &retryCount, &lastError)
	if err != nil {
		t.Fatalf("load task %d: %v", id, err)
	}
	return status, retryCount, lastError
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSyncWorkerProcessesUpsert(t *testing.T) {
	db := newWorkerDB(t)
	sheets := &fakeSheets{}
	w := NewSyncWorker(db, sheets, nil, nil, RetryPolicy{}, quietLogger())

	ctx := context.Background()
	req := &models.Request{ID: 42, CustomID: "REQ-000042", Status: models.StatusPending}
	if err := w.EnqueueRequestUpsert(ctx, req); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := w.tryLocalQueue()
	if !ok {
		t.Fatal("expected task in local queue")
	}
	w.processTask(ctx, &task)

	if len(sheets.upserts) != 1 || sheets.upserts[0] != 42 {
		t.Fatalf("expected upsert for request 42, got %v", sheets.upserts)
	}
	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != "completed" {
		t.Fatalf("expected status completed, got %s", status)
	}
}

func TestSyncWorkerProcessesStatusUpdate(t *testing.T) {
	db := newWorkerDB(t)
	sheets := &fakeSheets{}
	w := NewSyncWorker(db, sheets, nil, nil, RetryPolicy{}, quietLogger())

	ctx := context.Background()
	if err := w.EnqueueStatusUpdate(ctx, 7, models.StatusOngoing); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := w.tryLocalQueue()
	if !ok {
		t.Fatal("expected task in local queue")
	}
	w.processTask(ctx, &task)

	if got := sheets.statuses[7]; got != models.StatusOngoing {
		t.Fatalf("expected ONGOING for request 7, got %s", got)
	}
}

func TestSyncWorkerDeliversNotification(t *testing.T) {
	db := newWorkerDB(t)
	notifier := &fakeNotifier{}
	w := NewSyncWorker(db, nil, notifier, nil, RetryPolicy{}, quietLogger())

	ctx := context.Background()
	n := &models.Notification{Message: "Your request REQ-000001 has been created"}
	if err := w.EnqueueNotify(ctx, n, 123456); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := w.EnqueueNotify(ctx, n, 0); err == nil {
		t.Fatal("expected error for zero chat id")
	}

	task, ok := w.tryLocalQueue()
	if !ok {
		t.Fatal("expected task in local queue")
	}
	w.processTask(ctx, &task)

	if len(notifier.delivered) != 1 || notifier.delivered[0] != n.Message {
		t.Fatalf("unexpected deliveries: %v", notifier.delivered)
	}
}

func TestSyncWorkerRetriesOnFailure(t *testing.T) {
	db := newWorkerDB(t)
	sheets := &fakeSheets{err: errors.New("quota exceeded")}
	w := NewSyncWorker(db, sheets, nil, nil, RetryPolicy{MaxRetries: 3}, quietLogger())

	ctx := context.Background()
	req := &models.Request{ID: 1, CustomID: "REQ-000001"}
	if err := w.EnqueueRequestUpsert(ctx, req); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, _ := w.tryLocalQueue()
	w.processTask(ctx, &task)

	status, _, lastError := loadTaskStatus(t, db, task.ID)
	if status != "retry" {
		t.Fatalf("expected status retry, got %s", status)
	}
	if lastError != "quota exceeded" {
		t.Fatalf("expected last_error recorded, got %q", lastError)
	}
}

func TestSyncWorkerFailsAfterMaxRetries(t *testing.T) {
	db := newWorkerDB(t)
	sheets := &fakeSheets{err: errors.New("quota exceeded")}
	w := NewSyncWorker(db, sheets, nil, nil, RetryPolicy{MaxRetries: 2}, quietLogger())

	ctx := context.Background()
	req := &models.Request{ID: 1, CustomID: "REQ-000001"}
	if err := w.EnqueueRequestUpsert(ctx, req); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, _ := w.tryLocalQueue()

	// final attempt
	task.RetryCount = 1
	w.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != "failed" {
		t.Fatalf("expected status failed, got %s", status)
	}
}

func TestSyncWorkerFailsWithoutHandler(t *testing.T) {
	db := newWorkerDB(t)
	// no sheets writer configured: upsert tasks burn through retries
	w := NewSyncWorker(db, nil, nil, nil, RetryPolicy{MaxRetries: 1}, quietLogger())

	ctx := context.Background()
	req := &models.Request{ID: 9, CustomID: "REQ-000009"}
	if err := w.EnqueueRequestUpsert(ctx, req); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, _ := w.tryLocalQueue()
	w.processTask(ctx, &task)

	status, _, lastError := loadTaskStatus(t, db, task.ID)
	if status != "failed" {
		t.Fatalf("expected status failed, got %s", status)
	}
	if lastError == "" {
		t.Fatal("expected last_error recorded")
	}
}

func TestSyncWorkerUnknownTaskType(t *testing.T) {
	db := newWorkerDB(t)
	w := NewSyncWorker(db, &fakeSheets{}, nil, nil, RetryPolicy{MaxRetries: 1}, quietLogger())

	ctx := context.Background()
	task := models.SyncTask{TaskType: "reindex", Payload: "{}", Status: "pending", CreatedAt: time.Now()}
	if err := db.CreateSyncTask(ctx, &task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	w.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != "failed" {
		t.Fatalf("expected status failed, got %s", status)
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped
		{6, 10 * time.Second},
	}
	for _, c := range cases {
		if got := p.NextDelay(c.attempt); got != c.want {
			t.Errorf("attempt %d: expected %v, got %v", c.attempt, c.want, got)
		}
	}
}
