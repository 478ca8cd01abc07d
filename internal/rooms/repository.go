package rooms

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/models"
	"github.com/thereayou/study-room/internal/session"
	"gorm.io/gorm"
)

const listLimit = 100

// Storage is the document-store collaborator behind the repository.
type Storage interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListActiveRooms(ctx context.Context, now time.Time, limit int) ([]models.Room, error)
	AddRoomMember(ctx context.Context, roomID, userID uuid.UUID, at time.Time) error
}

// Repository is the CRUD boundary for rooms. Every storage failure leaving it
// is one of the apperrors kinds.
type Repository struct {
	storage Storage
	clock   clock.Clock
}

func NewRepository(storage Storage, clk clock.Clock) *Repository {
	return &Repository{storage: storage, clock: clk}
}

// Create stores a new room owned by creator. ExpiresAt is fixed here and never
// written again.
func (r *Repository) Create(ctx context.Context, name, description string, creator session.Session) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("room name is required")
	}

	now := r.clock.Now().UTC()
	room := &models.Room{
		Name:        name,
		Description: strings.TrimSpace(description),
		Creator:     creator.SenderName(),
		CreatedBy:   creator.UserID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(models.RoomLifetime),
		Members:     []models.RoomMember{},
	}

	if err := r.storage.CreateRoom(ctx, room); err != nil {
		return nil, apperrors.Transient("create room", err)
	}
	return room, nil
}

// Get returns the room with id, expired or not.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := r.storage.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("room " + id.String())
		}
		return nil, apperrors.Transient("get room", err)
	}
	return room, nil
}

// GetActive is Get with expiry enforced: an expired room is reported exactly
// like a missing one.
func (r *Repository) GetActive(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if room.ExpiredAt(r.clock.Now()) {
		return nil, apperrors.NotFound("room " + id.String())
	}
	return room, nil
}

// ListActive returns rooms that are still open, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]models.Room, error) {
	rooms, err := r.storage.ListActiveRooms(ctx, r.clock.Now().UTC(), listLimit)
	if err != nil {
		return nil, apperrors.Transient("list rooms", err)
	}
	return rooms, nil
}

// AddMember adds userID to the member set. Joining twice is a no-op.
func (r *Repository) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	if _, err := r.Get(ctx, roomID); err != nil {
		return err
	}
	if err := r.storage.AddRoomMember(ctx, roomID, userID, r.clock.Now().UTC()); err != nil {
		return apperrors.Transient("add member", err)
	}
	return nil
}
