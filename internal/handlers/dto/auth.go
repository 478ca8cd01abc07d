package dto

import (
	"time"

	"github.com/google/uuid"
)

type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

type UserInfo struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	LastSeenAt  time.Time `json:"last_seen_at,omitempty"`
	DisplayName string    `json:"display_name"`
}

// SessionPayload is the data of a "session" websocket event.
type SessionPayload struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Anonymous   bool      `json:"anonymous"`
	Redirect    string    `json:"redirect,omitempty"`
}
