package models

import "time"

// Role determines what a principal may do with requests.
type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// CanBeAssigned reports whether a user with this role may be the assignee of
// a request.
func (r Role) CanBeAssigned() bool {
	return r == RoleEmployee || r == RoleAdmin
}

type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Role           Role       `json:"role"`
	Token          string     `json:"-"`
	TelegramChatID int64      `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// Principal is the authenticated identity acting on a request.
type Principal struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

func (p Principal) IsAdmin() bool    { return p.Role == RoleAdmin }
func (p Principal) IsEmployee() bool { return p.Role == RoleEmployee }
func (p Principal) IsClient() bool   { return p.Role == RoleClient }
