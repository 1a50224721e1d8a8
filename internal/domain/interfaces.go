package domain

import (
	"context"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/models"
)

// Repository is the persistence capability set the services depend on.
// Reads exclude soft-deleted rows unless the filter says otherwise.
type Repository interface {
	// Requests
	CreateRequest(ctx context.Context, req *models.Request) error
	GetRequest(ctx context.Context, id int64) (*models.Request, error)
	ListRequests(ctx context.Context, filter models.RequestFilter, scope models.Principal) ([]*models.Request, error)
	CountRequests(ctx context.Context, filter models.RequestFilter, scope models.Principal) (int64, error)
	UpdateRequest(ctx context.Context, req *models.Request) error
	SoftDeleteRequest(ctx context.Context, id int64, deletedBy int64) error

	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error)

	// Catalog
	CreateService(ctx context.Context, svc *models.Service) error
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ListServices(ctx context.Context) ([]*models.Service, error)
	CreateLocation(ctx context.Context, loc *models.Location) error
	GetLocation(ctx context.Context, id int64) (*models.Location, error)

	// Notifications
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string, userID int64) error

	// Sync queue
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// RequestService orchestrates the request lifecycle with role-based access.
type RequestService interface {
	Create(ctx context.Context, input CreateRequestInput, clientID int64) (*models.Request, error)
	FindAll(ctx context.Context, actor models.Principal, filter models.RequestFilter) ([]*models.Request, error)
	FindOne(ctx context.Context, id int64, actor models.Principal) (*models.Request, error)
	Update(ctx context.Context, id int64, patch UpdateRequestInput, actor models.Principal) (*models.Request, error)
	Remove(ctx context.Context, id int64, actor models.Principal) error
	Assign(ctx context.Context, id int64, assigneeID int64, actor models.Principal) (*models.Request, error)
	RequestCancellation(ctx context.Context, id int64, reason string, actor models.Principal) (*models.Request, error)
	Complete(ctx context.Context, id int64, notes string, actor models.Principal) (*models.Request, error)
	Count(ctx context.Context, actor models.Principal, filter models.RequestFilter) (int64, error)
}

// CreateRequestInput carries client-supplied fields for a new request.
type CreateRequestInput struct {
	ServiceID         int64          `json:"service_id"`
	LocationID        int64          `json:"location_id"`
	ExecutionDateTime time.Time      `json:"execution_date_time"`
	TemplateResponses models.JSONMap `json:"template_responses,omitempty"`
	Note              models.JSONMap `json:"note,omitempty"`
}

// UpdateRequestInput is a partial patch; nil fields are left untouched.
type UpdateRequestInput struct {
	ExecutionDateTime *time.Time      `json:"execution_date_time,omitempty"`
	Status            *models.Status  `json:"status,omitempty"`
	AssignedToID      *int64          `json:"assigned_to_id,omitempty"`
	LocationID        *int64          `json:"location_id,omitempty"`
	TemplateResponses *models.JSONMap `json:"template_responses,omitempty"`
	Note              *models.JSONMap `json:"note,omitempty"`
}

// CatalogService manages the services and locations requests are created
// against.
type CatalogService interface {
	CreateService(ctx context.Context, name string, template models.JSONMap, actor models.Principal) (*models.Service, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ListServices(ctx context.Context) ([]*models.Service, error)
	CreateLocation(ctx context.Context, name, address string, actor models.Principal) (*models.Location, error)
	GetLocation(ctx context.Context, id int64, actor models.Principal) (*models.Location, error)
}

// UserService manages accounts and answers token lookups for the API.
type UserService interface {
	CreateUser(ctx context.Context, email, name string, role models.Role, actor models.Principal) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)
}

// NotificationInput is the fire-and-forget notification boundary. Rejections
// are treated as non-fatal by callers.
type NotificationInput struct {
	UserID  int64
	Type    string
	Message string
	Data    models.JSONMap
}

// NotificationService persists notifications and hands delivery to the
// background worker.
type NotificationService interface {
	CreateNotification(ctx context.Context, input NotificationInput) error
	List(ctx context.Context, userID int64, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id string, userID int64) error
}

// Notifier delivers a notification over an external channel.
type Notifier interface {
	Deliver(ctx context.Context, chatID int64, message string) error
}

// SheetsWriter mirrors requests into a spreadsheet.
type SheetsWriter interface {
	UpsertRequest(ctx context.Context, req *models.Request) error
	UpdateRequestStatus(ctx context.Context, requestID int64, status models.Status) error
}

// SyncWorker accepts background tasks; enqueue failures are non-fatal to the
// primary mutation.
type SyncWorker interface {
	EnqueueNotify(ctx context.Context, n *models.Notification, chatID int64) error
	EnqueueRequestUpsert(ctx context.Context, req *models.Request) error
	EnqueueStatusUpdate(ctx context.Context, requestID int64, status models.Status) error
}

// EventPublisher publishes in-process domain events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// RateLimiter answers whether a principal may make another call inside the
// window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
