package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/study-room/internal/models"
)

// Session is the identity of the current viewing client. The zero value is
// the anonymous session.
type Session struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
}

// Anonymous is the session of a client that is not signed in.
var Anonymous = Session{}

func New(userID uuid.UUID, displayName string) Session {
	return Session{UserID: userID, DisplayName: displayName}
}

func (s Session) IsAnonymous() bool {
	return s.UserID == uuid.Nil
}

// SenderName is the name stamped on chat messages and created rooms.
func (s Session) SenderName() string {
	if s.IsAnonymous() || s.DisplayName == "" {
		return models.AnonymousSender
	}
	return s.DisplayName
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(ctxKey{}).(Session); ok {
		return s
	}
	return Anonymous
}
