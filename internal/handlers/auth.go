package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/handlers/dto"
	"github.com/thereayou/study-room/internal/middleware"
	"github.com/thereayou/study-room/internal/services"
	"github.com/thereayou/study-room/internal/session"
)

type AuthHandler struct {
	service *services.AuthService
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user registered", "id": user.ID})
}

// Login issues a token for email and password.
func (h *AuthHandler) Login(c *gin.Context) {
	var creds session.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	provider := session.NewProvider(h.service)
	sess, token, err := provider.SignIn(c.Request.Context(), creds)
	if err != nil {
		if apperrors.IsTransient(err) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token: token,
		User: dto.UserInfo{
			ID:          sess.UserID,
			Username:    sess.DisplayName,
			DisplayName: sess.SenderName(),
		},
	})
}

// Logout blacklists the caller's token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	provider := middleware.CurrentProvider(c)
	if provider == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in", "redirect": "/login"})
		return
	}

	if err := provider.SignOut(c.Request.Context()); err != nil {
		if apperrors.IsTransient(err) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirect": "/login"})
}
