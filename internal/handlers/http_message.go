package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/study-room/internal/handlers/dto"
	"github.com/thereayou/study-room/internal/messages"
	"github.com/thereayou/study-room/internal/middleware"
	"github.com/thereayou/study-room/internal/rooms"
)

type HTTPMessageHandler struct {
	repo   *rooms.Repository
	stream *messages.Stream
}

func NewHTTPMessageHandler(repo *rooms.Repository, stream *messages.Stream) *HTTPMessageHandler {
	return &HTTPMessageHandler{repo: repo, stream: stream}
}

// GetRoomMessages returns the full chat history, oldest first.
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetActive(ctx, roomID); err != nil {
		respondError(c, err)
		return
	}

	msgs, err := h.stream.History(ctx, roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage posts a message as the caller. Live views pick it up through
// the stream.
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req dto.MessagePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetActive(ctx, roomID); err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.stream.Append(ctx, roomID, req.Text, middleware.CurrentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}
