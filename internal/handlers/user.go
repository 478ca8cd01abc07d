package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/handlers/dto"
	"github.com/thereayou/study-room/internal/middleware"
	"github.com/thereayou/study-room/internal/services"
)

type UserHandler struct {
	service *services.AuthService
}

func NewUserHandler(service *services.AuthService) *UserHandler {
	return &UserHandler{service: service}
}

// GetMe returns the signed-in user.
func (h *UserHandler) GetMe(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	user, err := h.service.Me(c.Request.Context(), sess)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserInfo{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		CreatedAt:   user.CreatedAt,
		LastSeenAt:  user.LastSeenAt,
		DisplayName: sess.SenderName(),
	})
}
