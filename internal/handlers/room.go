package handlers

import (
	"net/http"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/handlers/dto"
	"github.com/thereayou/study-room/internal/middleware"
	"github.com/thereayou/study-room/internal/rooms"
	"github.com/thereayou/study-room/internal/websocket"
)

type RoomHandler struct {
	repo  *rooms.Repository
	hub   *websocket.Hub
	clock clock.Clock
}

func NewRoomHandler(repo *rooms.Repository, hub *websocket.Hub, clk clock.Clock) *RoomHandler {
	return &RoomHandler{repo: repo, hub: hub, clock: clk}
}

// ListRooms returns the rooms that are still open, newest first.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	list, err := h.repo.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.clock.Now()
	resp := make([]*dto.RoomResponse, 0, len(list))
	for i := range list {
		room := formatRoomResponse(&list[i], now, nil)
		room.OnlineCount = len(h.hub.GetRoomUsers(list[i].ID))
		resp = append(resp, room)
	}

	c.JSON(http.StatusOK, gin.H{"rooms": resp})
}

// CreateRoom opens a new room for four hours.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.repo.Create(c.Request.Context(), req.Name, req.Description, middleware.CurrentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, formatRoomResponse(room, h.clock.Now(), nil))
}

// JoinRoom adds the caller to the room named by its code.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req dto.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code := strings.TrimSpace(req.Code)
	roomID, err := uuid.Parse(code)
	if err != nil {
		respondError(c, apperrors.NotFound("room "+code))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetActive(ctx, roomID); err != nil {
		respondError(c, err)
		return
	}

	// the join page is a short-lived view with no feed of its own
	sess := middleware.CurrentSession(c)
	ctrl := rooms.NewController(h.repo, nil, sess, h.clock, nil)
	defer ctrl.Close()
	if err := ctrl.JoinRoom(ctx, roomID, sess.UserID); err != nil {
		respondError(c, err)
		return
	}

	room, err := h.repo.Get(ctx, roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":     formatRoomResponse(room, h.clock.Now(), h.hub.GetRoomUsers(roomID)),
		"redirect": "/rooms/" + roomID.String(),
	})
}

// GetRoom loads one open room. Expired and missing rooms look the same.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	room, err := h.repo.GetActive(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, formatRoomResponse(room, h.clock.Now(), h.hub.GetRoomUsers(roomID)))
}
