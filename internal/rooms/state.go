package rooms

import (
	"time"

	"github.com/thereayou/study-room/internal/models"
)

// ViewState is where one client's view of a room is in its lifecycle:
// Loading, then Active, then Expired; or Loading then NotFound.
type ViewState int

const (
	Loading ViewState = iota
	Active
	Expired
	NotFound
)

func (s ViewState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Active:
		return "active"
	case Expired:
		return "expired"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further room interaction is possible.
func (s ViewState) Terminal() bool {
	return s == Expired || s == NotFound
}

func (s ViewState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Listener receives the controller's state changes. Callbacks run on
// controller goroutines, must not block and must not call Close.
type Listener interface {
	StateChanged(state ViewState, room *models.Room)
	TimeRemaining(d time.Duration)
	MessagesChanged(msgs []models.Message)
	RoomExpired()
	Error(err error)
}

// NopListener ignores every event. Embed it to implement part of Listener.
type NopListener struct{}

func (NopListener) StateChanged(ViewState, *models.Room) {}
func (NopListener) TimeRemaining(time.Duration)          {}
func (NopListener) MessagesChanged([]models.Message)     {}
func (NopListener) RoomExpired()                         {}
func (NopListener) Error(error)                          {}
