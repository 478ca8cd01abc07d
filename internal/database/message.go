package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/study-room/internal/models"
)

func (d *Database) SaveMessage(ctx context.Context, message *models.Message) error {
	return d.db.WithContext(ctx).Create(message).Error
}

// GetRoomMessages returns every message of the room in display order.
func (d *Database) GetRoomMessages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := d.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("sent_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}
