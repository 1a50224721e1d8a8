package models

import "time"

const (
	NotificationRequestCreated        = "request_created"
	NotificationRequestAssigned       = "request_assigned"
	NotificationCancellationRequested = "cancellation_requested"
	NotificationRequestCancelled      = "request_cancelled"
	NotificationRequestCompleted      = "request_completed"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Data      JSONMap   `json:"data,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
