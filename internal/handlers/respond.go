package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/handlers/dto"
	"github.com/thereayou/study-room/internal/models"
	"github.com/thereayou/study-room/internal/websocket"
)

// respondError writes err in the API error format.
func respondError(c *gin.Context, err error) {
	status := apperrors.StatusCode(err)
	switch status {
	case http.StatusNotFound:
		c.JSON(status, gin.H{"error": "room unavailable", "home": "/"})
	case http.StatusServiceUnavailable:
		c.JSON(status, gin.H{"error": "temporarily unavailable, try again"})
	case http.StatusInternalServerError:
		c.JSON(status, gin.H{"error": "internal error"})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

// roomIDParam parses :id. A malformed id is just another unavailable room.
func roomIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.NotFound("room "+c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}

func formatRoomResponse(room *models.Room, now time.Time, online []websocket.Presence) *dto.RoomResponse {
	members := make([]uuid.UUID, 0, len(room.Members))
	for _, m := range room.Members {
		members = append(members, m.UserID)
	}

	left := room.ExpiresAt.Sub(now)
	if left < 0 {
		left = 0
	}

	resp := &dto.RoomResponse{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		Creator:     room.Creator,
		CreatedAt:   room.CreatedAt,
		ExpiresAt:   room.ExpiresAt,
		Members:     members,
		SecondsLeft: int(left / time.Second),
		OnlineCount: len(online),
	}
	for _, p := range online {
		resp.OnlineUserIDs = append(resp.OnlineUserIDs, p.UserID)
	}
	return resp
}
