package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomLifetime is how long a study room stays open after creation.
const RoomLifetime = 4 * time.Hour

type Room struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"not null"`
	Description string
	Creator     string    `gorm:"not null"`
	CreatedBy   uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`

	// Associations
	Members []RoomMember `gorm:"foreignKey:RoomID"`
}

// RoomMember is one element of a room's member set. The composite primary key
// turns a duplicate insert into a no-op.
type RoomMember struct {
	RoomID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	JoinedAt time.Time
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// MemberIDs returns the member set as user id strings.
func (r *Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.UserID.String())
	}
	return ids
}

func (r *Room) HasMember(userID uuid.UUID) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// ExpiredAt reports whether the room is closed at the given instant.
func (r *Room) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
