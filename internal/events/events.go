package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventRequestCreated         = "request_created"
	EventRequestUpdated         = "request_updated"
	EventRequestAssigned        = "request_assigned"
	EventRequestCancelRequested = "request_cancel_requested"
	EventRequestCancelled       = "request_cancelled"
	EventRequestCompleted       = "request_completed"
	EventRequestDeleted         = "request_deleted"
)

// RequestEventPayload is the minimal request snapshot for event consumers.
type RequestEventPayload struct {
	RequestID    int64     `json:"request_id"`
	CustomID     string    `json:"custom_id"`
	UserID       int64     `json:"user_id"`
	ServiceID    int64     `json:"service_id"`
	AssignedToID *int64    `json:"assigned_to_id,omitempty"`
	FromStatus   string    `json:"from_status,omitempty"`
	Status       string    `json:"status"`
	ActorID      int64     `json:"actor_id"`
	ActorRole    string    `json:"actor_role"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run
// synchronously; the caller decides the concurrency model.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
