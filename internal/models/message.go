package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnonymousSender is shown for messages sent without a signed-in user.
const AnonymousSender = "Anonymous"

type Message struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_room_ts,priority:1" json:"room_id"`
	Text      string     `gorm:"not null" json:"text"`
	Sender    string     `gorm:"not null" json:"sender"`
	SenderID  *uuid.UUID `gorm:"type:uuid" json:"sender_id,omitempty"`
	Timestamp time.Time  `gorm:"column:sent_at;not null;index:idx_messages_room_ts,priority:2" json:"timestamp"`
}

// BeforeCreate assigns a UUIDv7. Version 7 ids are monotonic within the
// process, so (timestamp, id) ordering follows insertion order on ties.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.ID = id
	}
	return nil
}
