package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type JoinRoomRequest struct {
	Code string `json:"code" binding:"required"`
}

type RoomResponse struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Creator       string      `json:"creator"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
	Members       []uuid.UUID `json:"members"`
	SecondsLeft   int         `json:"seconds_left"`
	OnlineCount   int         `json:"online_count"`
	OnlineUserIDs []uuid.UUID `json:"online_users,omitempty"`
}

// RoomStatePayload is the data of a "room_state" websocket event.
type RoomStatePayload struct {
	State string        `json:"state"`
	Room  *RoomResponse `json:"room,omitempty"`
	Home  string        `json:"home,omitempty"`
}

type RoomTickPayload struct {
	Seconds int `json:"seconds"`
}

type RedirectPayload struct {
	Redirect string `json:"redirect"`
}
