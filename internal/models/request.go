package models

import "time"

// JSONMap is a freeform JSON object persisted as-is. Template responses are
// not validated against the service template schema at write time.
type JSONMap map[string]interface{}

// NoteCompletionKey is the key under which completion notes are merged into
// the request note blob.
const NoteCompletionKey = "completionNotes"

type Request struct {
	ID                      int64      `json:"id"`
	CustomID                string     `json:"custom_id"`
	UserID                  int64      `json:"user_id"`
	ServiceID               int64      `json:"service_id"`
	LocationID              int64      `json:"location_id"`
	AssignedToID            *int64     `json:"assigned_to_id,omitempty"`
	Status                  Status     `json:"status"`
	ExecutionDateTime       time.Time  `json:"execution_date_time"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	CancellationRequested   bool       `json:"cancellation_requested"`
	CancellationRequestedAt *time.Time `json:"cancellation_requested_at,omitempty"`
	TemplateResponses       JSONMap    `json:"template_responses,omitempty"`
	Note                    JSONMap    `json:"note,omitempty"`
	CreatedBy               int64      `json:"created_by"`
	UpdatedBy               int64      `json:"updated_by"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
	DeletedAt               *time.Time `json:"deleted_at,omitempty"`
}

// RequestFilter narrows list and count queries. Nil fields are ignored.
// ExecutionFrom/ExecutionTo are inclusive bounds on ExecutionDateTime.
type RequestFilter struct {
	Status         *Status
	ServiceID      *int64
	AssignedToID   *int64
	ExecutionFrom  *time.Time
	ExecutionTo    *time.Time
	IncludeDeleted bool
	Limit          int
	Offset         int
}
