package services

import (
	"context"
	"time"

	"github.com/thereayou/study-room/internal/models"
)

// UserStore is the part of the database the identity service needs.
type UserStore interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}
