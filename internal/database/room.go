package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/study-room/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (d *Database) CreateRoom(ctx context.Context, room *models.Room) error {
	return d.db.WithContext(ctx).Omit("Members").Create(room).Error
}

func (d *Database) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := d.db.WithContext(ctx).
		Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("joined_at ASC") }).
		First(&room, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListActiveRooms returns rooms that have not expired at now, newest first.
func (d *Database) ListActiveRooms(ctx context.Context, now time.Time, limit int) ([]models.Room, error) {
	var rooms []models.Room
	err := d.db.WithContext(ctx).
		Preload("Members").
		Where("expires_at > ?", now).
		Order("created_at DESC").
		Limit(limit).
		Find(&rooms).Error
	return rooms, err
}

// AddRoomMember adds userID to the room's member set. A duplicate insert is a
// no-op, which keeps concurrent joins safe without a read-modify-write.
func (d *Database) AddRoomMember(ctx context.Context, roomID, userID uuid.UUID, at time.Time) error {
	member := models.RoomMember{RoomID: roomID, UserID: userID, JoinedAt: at}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error
}
