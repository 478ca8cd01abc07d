package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/thereayou/study-room/internal/config"
	"github.com/thereayou/study-room/internal/handlers"
	"github.com/thereayou/study-room/internal/middleware"
	"github.com/thereayou/study-room/internal/session"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	User      *handlers.UserHandler
	Room      *handlers.RoomHandler
	Message   *handlers.HTTPMessageHandler
	WebSocket *handlers.WebSocketHandler
	Health    gin.HandlerFunc
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	if cfg.AllowAllOrigins() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AddAllowHeaders("Accept", "User-Agent", "Authorization")
	return corsCfg
}

func APIEndpoints(r *gin.Engine, cfg *config.Config, identity session.Identity, h *Handlers) {
	r.Use(cors.New(corsConfig(cfg)))

	r.GET("/health", h.Health)

	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", middleware.AuthMiddleware(identity), h.Auth.Logout)
	}

	// API endpoints
	api := r.Group("/api/v1", middleware.AuthMiddleware(identity))
	{
		api.GET("/me", h.User.GetMe)

		api.GET("/rooms", h.Room.ListRooms)
		api.POST("/rooms", h.Room.CreateRoom)
		api.POST("/rooms/join", h.Room.JoinRoom)
		api.GET("/rooms/:id", h.Room.GetRoom)

		api.GET("/rooms/:id/messages", h.Message.GetRoomMessages)
		api.POST("/rooms/:id/messages", h.Message.SendMessage)
	}

	// Live study-room view
	r.GET("/ws/rooms/:id", middleware.WSAuthMiddleware(identity), h.WebSocket.HandleRoom)
}
